package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" Admin ")
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	_, ok = ParseRole("root")
	assert.False(t, ok)

	_, ok = ParseRole("")
	assert.False(t, ok)
}

func TestRole_CanSimulateFailure(t *testing.T) {
	assert.True(t, RoleAdmin.CanSimulateFailure())
	assert.True(t, RoleManager.CanSimulateFailure())
	assert.False(t, RoleUser.CanSimulateFailure())
}

func TestUploadRequest_OmitsUnsetPayloadField(t *testing.T) {
	text := "hello"
	b, err := json.Marshal(UploadRequest{Filename: "a.txt", Content: &text})
	require.NoError(t, err)
	assert.JSONEq(t, `{"filename":"a.txt","encrypt":false,"content":"hello"}`, string(b))

	empty := ""
	b, err = json.Marshal(UploadRequest{Filename: "e.bin", Encrypt: true, ContentBase64: &empty})
	require.NoError(t, err)
	assert.JSONEq(t, `{"filename":"e.bin","encrypt":true,"content_base64":""}`, string(b))
}
