package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type incidentRecord struct {
	Key      string `json:"incident_key"`
	Borough  string `json:"boro"`
	Precinct string `json:"precinct"`
}

func TestDecodeJSONArray_Basic(t *testing.T) {
	input := `[
		{"incident_key":"1001","boro":"BROOKLYN","precinct":"73"},
		{"incident_key":"1002","boro":"QUEENS","precinct":"103"}
	]`

	outCh, errCh := DecodeJSONArray[incidentRecord](context.Background(), strings.NewReader(input))

	var got []incidentRecord
	for rec := range outCh {
		got = append(got, rec)
	}
	require.NoError(t, <-errCh)

	require.Len(t, got, 2)
	assert.Equal(t, "BROOKLYN", got[0].Borough)
	assert.Equal(t, "103", got[1].Precinct)
}

func TestDecodeJSONArray_EmptyArray(t *testing.T) {
	outCh, errCh := DecodeJSONArray[incidentRecord](context.Background(), strings.NewReader("[]"))
	for range outCh {
		t.Fatal("no records expected")
	}
	require.NoError(t, <-errCh)
}

func TestDecodeJSONArray_NotAnArray(t *testing.T) {
	outCh, errCh := DecodeJSONArray[incidentRecord](context.Background(), strings.NewReader(`{"a":1}`))
	for range outCh {
	}
	err := <-errCh
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected '['")
}

func TestDecodeJSONArray_MalformedElement(t *testing.T) {
	outCh, errCh := DecodeJSONArray[incidentRecord](context.Background(), strings.NewReader(`[{"incident_key":1001}]`))
	for range outCh {
	}
	require.Error(t, <-errCh)
}
