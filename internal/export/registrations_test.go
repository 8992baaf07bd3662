package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hrhgit/loginweb-cli/internal/models"
)

func TestRegistrationsEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := Registrations(&buf, nil, nil)
	assert.ErrorIs(t, err, ErrNoRegistrations)
}

func TestRegistrationsWorkbook(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	questions := []models.Question{
		{ID: "q1", Title: "Shirt size"},
		{ID: "q2", Title: "Dietary needs"},
	}
	regs := []models.Registration{
		{
			User:      &models.User{Name: "Ada", Email: "ada@example.com"},
			Status:    "approved",
			Answers:   map[string]string{"q1": "M", "q2": "vegan"},
			CreatedAt: created,
		},
		{
			User:      &models.User{Name: "Grace", Email: "grace@example.com"},
			Status:    "pending",
			Answers:   map[string]string{"q1": "L"}, // q2 unanswered
			CreatedAt: created,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Registrations(&buf, regs, questions))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Registrations")
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Name", "Email", "Status", "Registered At", "Shirt size", "Dietary needs"}, rows[0])

	assert.Equal(t, "Ada", rows[1][0])
	assert.Equal(t, "ada@example.com", rows[1][1])
	assert.Equal(t, "approved", rows[1][2])
	assert.Equal(t, "M", rows[1][4])
	assert.Equal(t, "vegan", rows[1][5])

	// Unanswered question renders as an empty cell; excelize trims trailing
	// empties so guard by length.
	assert.Equal(t, "Grace", rows[2][0])
	assert.Equal(t, "L", rows[2][4])
	if len(rows[2]) > 5 {
		assert.Equal(t, "", rows[2][5])
	}
}

func TestRegistrationsNilUser(t *testing.T) {
	regs := []models.Registration{
		{Status: "pending", CreatedAt: time.Now()},
	}

	var buf bytes.Buffer
	require.NoError(t, Registrations(&buf, regs, nil))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Registrations")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "pending", rows[1][2])
}
