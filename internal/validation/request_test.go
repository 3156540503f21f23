package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type planRequest struct {
	Plan  string `json:"plan" validate:"required,plan"`
	Badge string `json:"badge" validate:"badge"`
}

type profileRequest struct {
	Categories []string `json:"categories" validate:"omitempty,max=2,dive,category"`
	Internal   string   `json:"-" validate:"required"`
}

func TestRequest(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		req     any
		wantMsg string
	}{
		{"valid plan", &planRequest{Plan: "plus", Badge: "verified"}, ""},
		{"empty badge is allowed", &planRequest{Plan: "free"}, ""},
		{"missing plan", &planRequest{}, "plan is required"},
		{"unknown plan", &planRequest{Plan: "gold"}, `unknown plan "gold"`},
		{"unknown badge", &planRequest{Plan: "pro", Badge: "king"}, `unknown badge "king"`},
		{"no categories", &profileRequest{Internal: "x"}, ""},
		{"known categories", &profileRequest{Categories: []string{"Tech", " Music "}, Internal: "x"}, ""},
		{"unknown category", &profileRequest{Categories: []string{"Cooking"}, Internal: "x"}, `unknown category "Cooking"`},
		{"too many categories", &profileRequest{Categories: []string{"Tech", "Art", "Food"}, Internal: "x"}, "categories must not exceed 2 entries"},
		{"untagged json name", &profileRequest{}, "Internal is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Request(tt.req)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantMsg)
		})
	}
}

func TestRequest_AnonymousStruct(t *testing.T) {
	t.Parallel()
	req := struct {
		TargetID string `json:"targetId" validate:"required"`
	}{}
	assert.EqualError(t, Request(&req), "targetId is required")

	req.TargetID = "u_1"
	assert.NoError(t, Request(&req))
}
