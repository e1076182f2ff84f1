package storage

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestValidateString(t *testing.T) {
	assert.NoError(t, validateString("id-1", "id"))
	assert.ErrorIs(t, validateString("", "id"), ErrEmptyString)
	assert.ErrorIs(t, validateString(" \t\n", "id"), ErrEmptyString)
	assert.Contains(t, validateString("", "ownerID").Error(), "ownerID")
}

func TestValidateRecord(t *testing.T) {
	valid := testRecord(model.TypeIncome, "1", "Sales", "2024-01-31")
	assert.NoError(t, validateRecord(valid))

	valid.InputMethod = ""
	assert.NoError(t, validateRecord(valid), "input method is optional for imported records")

	valid.Category = "Something Unlisted"
	assert.NoError(t, validateRecord(valid), "categories outside the suggested vocabulary are allowed")
}
