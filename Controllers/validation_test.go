package Controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"Onboarding/Models"
)

func TestValidator_Check(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name   string
		input  interface{}
		fields []string
	}{
		{name: "valid sign-up", input: &signUpInput{Email: "ada@example.com", Password: "secret123"}},
		{name: "bad email", input: &signUpInput{Email: "ada", Password: "secret123"}, fields: []string{"email"}},
		{name: "missing fields", input: &onboardingInput{}, fields: []string{"full_name", "start_date"}},
		{name: "bad date", input: &onboardingInput{FullName: "Ada", StartDate: "2024-13-01"}, fields: []string{"start_date"}},
		{name: "rating range", input: &reviewInput{OverallRating: 6}, fields: []string{"overall_rating"}},
		{
			name:   "nested link",
			input:  &customTaskInput{Title: "Shadow", Links: []Models.TaskLink{{Name: "Docs", URL: "nope"}}},
			fields: []string{"links[0].url"},
		},
		{name: "day range", input: &taskInput{Title: "Late", DayNumber: 31}, fields: []string{"day_number"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := v.Check(tt.input)
			if len(tt.fields) == 0 {
				assert.Nil(t, fields)
				return
			}
			assert.Len(t, fields, len(tt.fields))
			for _, field := range tt.fields {
				assert.NotEmpty(t, fields[field], field)
			}
		})
	}
}
