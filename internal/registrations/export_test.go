package registrations

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-foundation/backend/internal/models"
)

func exportFixture() ([]models.FieldDefinition, []models.Submission) {
	name := models.FieldDefinition{ID: uuid.New(), Label: "Full Name", Type: models.FieldText, Step: 1, Order: 0}
	diet := models.FieldDefinition{ID: uuid.New(), Label: "Dietary Needs", Type: models.FieldSelect, Options: []string{"None", "Vegan"}, Step: 1, Order: 1}
	volunteer := models.FieldDefinition{ID: uuid.New(), Label: "Volunteer", Type: models.FieldCheckbox, Step: 2, Order: 0}
	resume := models.FieldDefinition{ID: uuid.New(), Label: "Resume", Type: models.FieldFile, Step: 2, Order: 1}
	fields := []models.FieldDefinition{name, diet, volunteer, resume}

	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	subs := []models.Submission{
		{
			ID: uuid.New(), Email: "ada@example.org", CreatedAt: created,
			Responses: map[string]any{
				name.ID.String():      "Ada Lovelace",
				diet.ID.String():      "Vegan",
				volunteer.ID.String(): true,
				resume.ID.String():    map[string]any{"name": "ada-cv.pdf", "size": float64(1024)},
			},
		},
		{
			ID: uuid.New(), Email: "sam@example.org", CreatedAt: created.Add(time.Hour),
			Responses: map[string]any{
				name.ID.String():      "Sam Chen",
				volunteer.ID.String(): false,
				// deleted-field responses must not leak into the export
				uuid.NewString(): "orphaned answer",
			},
		},
	}
	return fields, subs
}

func TestWriteCSV_ColumnsFollowFieldOrder(t *testing.T) {
	fields, subs := exportFixture()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, fields, subs))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.Equal(t, []string{"Full Name", "Dietary Needs", "Volunteer", "Resume"}, rows[0])
	for _, row := range rows[1:] {
		require.Len(t, row, len(fields), "one column per field definition")
	}
}

func TestWriteCSV_CellRendering(t *testing.T) {
	fields, subs := exportFixture()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, fields, subs))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)

	ada := rows[1]
	require.Equal(t, "Ada Lovelace", ada[0])
	require.Equal(t, "Vegan", ada[1])
	require.Equal(t, "Yes", ada[2], "checked checkbox renders Yes")
	require.Equal(t, "ada-cv.pdf", ada[3], "file renders its original filename")

	sam := rows[2]
	require.Equal(t, "No", sam[2], "unchecked checkbox renders No")
	require.Equal(t, "—", sam[1], "missing answer renders the placeholder")
	require.Equal(t, "—", sam[3])
	for _, cell := range sam {
		require.NotEqual(t, "orphaned answer", cell, "orphaned responses must be omitted")
	}
}

func TestWriteCSV_EscapesDelimiters(t *testing.T) {
	field := models.FieldDefinition{ID: uuid.New(), Label: "Notes", Type: models.FieldTextarea, Step: 1}
	sub := models.Submission{
		CreatedAt: time.Now(),
		Responses: map[string]any{field.ID.String(): `line one, "quoted"` + "\nline two"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.FieldDefinition{field}, []models.Submission{sub}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, `line one, "quoted"`+"\nline two", rows[1][0])
}

func TestWriteCSV_NoSubmissions(t *testing.T) {
	fields, _ := exportFixture()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, fields, nil))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
}

func TestWriteCSV_NumberFormatting(t *testing.T) {
	field := models.FieldDefinition{ID: uuid.New(), Label: "Guests", Type: models.FieldNumber, Step: 1}
	sub := models.Submission{
		CreatedAt: time.Now(),
		Responses: map[string]any{field.ID.String(): float64(3)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.FieldDefinition{field}, []models.Submission{sub}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Equal(t, "3", rows[1][0], "whole numbers render without a decimal point")
}
