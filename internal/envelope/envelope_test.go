package envelope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuccess(t *testing.T) {
	env, err := Parse([]byte(`{"response":{"Kod":0,"Informacja":"Faktura wystawiona","Identyfikator":1234}}`))
	require.NoError(t, err)

	assert.True(t, env.Success())
	assert.NoError(t, env.Err())
	assert.Equal(t, 0, env.Code)
	assert.Equal(t, "Faktura wystawiona", env.Message)
	assert.Equal(t, "1234", env.ID)
	assert.JSONEq(t, `{"Kod":0,"Informacja":"Faktura wystawiona","Identyfikator":1234}`, string(env.Data))
}

func TestParseFailure(t *testing.T) {
	env, err := Parse([]byte(`{"response":{"Kod":201,"Informacja":"Brak faktury"}}`))
	require.NoError(t, err)

	assert.False(t, env.Success())
	assert.Empty(t, env.ID)

	failure := env.Err()
	require.Error(t, failure)
	assert.ErrorIs(t, failure, ErrRemoteFailure)

	var rf *RemoteFailure
	require.ErrorAs(t, failure, &rf)
	assert.Equal(t, 201, rf.Code)
	assert.Equal(t, "ifirma error 201: Brak faktury", rf.Error())
}

func TestParseStringID(t *testing.T) {
	env, err := Parse([]byte(`{"response":{"Kod":0,"Identyfikator":"FV/1/2024"}}`))
	require.NoError(t, err)
	assert.Equal(t, "FV/1/2024", env.ID)
}

func TestParseMalformed(t *testing.T) {
	for _, body := range []string{
		``,
		`not json`,
		`{}`,
		`{"response":null}`,
		`{"response":{"Kod":"x"}}`,
		`{"response":{"Informacja":"Brak dokumentu"}}`,
		`{"response":{}}`,
		`{"response":{"Kod":1.5}}`,
		`{"response":{"Kod":0,"Identyfikator":[1]}}`,
	} {
		_, err := Parse([]byte(body))
		assert.ErrorIs(t, err, ErrMalformed, body)
	}
}

func TestNilEnvelope(t *testing.T) {
	var env *Envelope
	assert.False(t, env.Success())
	assert.NoError(t, env.Err())
}
