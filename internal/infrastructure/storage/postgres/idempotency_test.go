package postgres

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReplayOf_Defaults(t *testing.T) {
	r := replayOf(IdempotencyRecord{Response: []byte(`{"id":"x"}`)})
	assert.Equal(t, http.StatusOK, r.StatusCode)
	assert.Equal(t, "application/json", r.ContentType)
	assert.JSONEq(t, `{"id":"x"}`, string(r.Body))
}

func TestReplayOf_StoredResponse(t *testing.T) {
	status := http.StatusUnprocessableEntity
	ct := "application/problem+json"
	r := replayOf(IdempotencyRecord{StatusCode: &status, ContentType: &ct})
	assert.Equal(t, status, r.StatusCode)
	assert.Equal(t, ct, r.ContentType)
}

func TestNewIdempotencyStore_DefaultTTL(t *testing.T) {
	assert.Equal(t, 24*60*60.0, NewIdempotencyStore(nil, 0).ttl.Seconds())
}
