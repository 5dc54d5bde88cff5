package types

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     AnalyzeRequest
		wantErr bool
	}{
		{name: "inline text", req: AnalyzeRequest{Company: "acme", JDText: "Requires Go"}},
		{name: "url", req: AnalyzeRequest{Company: "acme", JDURL: "https://example.com/jd"}},
		{name: "missing company", req: AnalyzeRequest{JDText: "jd"}, wantErr: true},
		{name: "both sources", req: AnalyzeRequest{Company: "acme", JDText: "jd", JDURL: "https://x.example"}, wantErr: true},
		{name: "neither source", req: AnalyzeRequest{Company: "acme"}, wantErr: true},
		{name: "malformed url", req: AnalyzeRequest{Company: "acme", JDURL: "not a url"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestAuthRequestTags(t *testing.T) {
	v := validator.New()

	require.Error(t, v.Struct(CreateUserRequest{Name: "A", Email: "bad", Password: "longenough"}))
	require.Error(t, v.Struct(CreateUserRequest{Name: "A", Email: "a@example.com", Password: "short"}))
	require.NoError(t, v.Struct(CreateUserRequest{Name: "A", Email: "a@example.com", Password: "longenough"}))

	require.Error(t, v.Struct(LoginRequest{Email: "a@example.com"}))
	require.NoError(t, v.Struct(LoginRequest{Email: "a@example.com", Password: "pw"}))

	require.Error(t, v.Struct(UpdatePasswordRequest{CurrentPassword: "old", NewPassword: "short"}))
	require.NoError(t, v.Struct(UpdatePasswordRequest{CurrentPassword: "old", NewPassword: "longenough"}))
}
