package ai

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		raw     string
		wantKey string
		wantErr bool
	}{
		{name: "plain json", raw: `{"name":"Profil FR"}`, wantKey: "name"},
		{name: "code fence", raw: "```json\n{\"name\":\"Profil FR\"}\n```", wantKey: "name"},
		{name: "prose around", raw: "Voici le profil: {\"score_ai\": 70} merci", wantKey: "score_ai"},
		{name: "scalar json", raw: `42`},
		{name: "no object", raw: "désolé, je ne peux pas", wantErr: true},
		{name: "broken object", raw: "{not json}", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			obj, err := DecodeObject(tc.raw)
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNoJSONObject)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, obj)
			if tc.wantKey != "" {
				assert.Contains(t, obj, tc.wantKey)
			} else {
				assert.Empty(t, obj)
			}
		})
	}
}

func TestDecodeObjectOutOfRangeNumbers(t *testing.T) {
	t.Parallel()

	obj, err := DecodeObject(`{"compiled":{"sizeMin":1e400,"sizeMax":250,"weights":[-1e400, 3]}}`)
	require.NoError(t, err)

	compiled, ok := obj["compiled"].(map[string]any)
	require.True(t, ok)
	assert.Nil(t, compiled["sizeMin"])
	assert.Equal(t, 250.0, compiled["sizeMax"])
	assert.Equal(t, []any{nil, 3.0}, compiled["weights"])
}

func TestCoerceHelpers(t *testing.T) {
	t.Parallel()

	n, ok := CoerceNumber(" 4.5 ")
	require.True(t, ok)
	assert.Equal(t, 4.5, n)

	_, ok = CoerceNumber("abc")
	assert.False(t, ok)

	n, ok = CoerceNumber("")
	require.True(t, ok)
	assert.Equal(t, 0.0, n)

	_, ok = CoerceNumber(map[string]any{})
	assert.False(t, ok)

	assert.Equal(t, "42", CoerceString(42.0))
	assert.Equal(t, "true", CoerceString(true))
	assert.Equal(t, `{"a":1}`, CoerceString(map[string]any{"a": 1}))

	values, ok := CoerceStrings([]any{"Shopify", 3.0, nil})
	require.True(t, ok)
	assert.Equal(t, []string{"Shopify", "3", ""}, values)

	_, ok = CoerceStrings("Shopify")
	assert.False(t, ok)

	assert.False(t, Truthy(""))
	assert.False(t, Truthy(0.0))
	assert.False(t, Truthy(nil))
	assert.True(t, Truthy([]any{}))
	assert.True(t, Truthy("x"))
}

func TestProviderErrorKinds(t *testing.T) {
	t.Parallel()

	forbidden := fmt.Errorf("compile: %w", &ProviderError{Provider: "openai", StatusCode: http.StatusForbidden})
	assert.True(t, errors.Is(forbidden, ErrProviderAuth))

	unavailable := &ProviderError{Provider: "openai", StatusCode: http.StatusServiceUnavailable, Body: "overloaded"}
	assert.False(t, errors.Is(unavailable, ErrProviderAuth))
	assert.True(t, unavailable.Temporary())
	assert.Equal(t, "openai HTTP 503: overloaded", unavailable.Error())

	badRequest := &ProviderError{StatusCode: http.StatusBadRequest}
	assert.False(t, badRequest.Temporary())
	assert.Equal(t, "llm HTTP 400", badRequest.Error())
}
