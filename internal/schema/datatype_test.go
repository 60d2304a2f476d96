package schema

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataType(t *testing.T) {
	tests := []struct {
		input    string
		want     DataType
		rendered string
		affinity Affinity
	}{
		{"BIGINT", DataType{Name: "BIGINT"}, "BIGINT", AffinityInteger},
		{"int", DataType{Name: "INTEGER"}, "INTEGER", AffinityInteger},
		{"varchar(64)", DataType{Name: "VARCHAR", Length: 64}, "VARCHAR(64)", AffinityText},
		{"STRING", DataType{Name: "VARCHAR", Length: 255}, "VARCHAR(255)", AffinityText},
		{"string(32)", DataType{Name: "VARCHAR", Length: 32}, "VARCHAR(32)", AffinityText},
		{"DECIMAL(10, 2)", DataType{Name: "DECIMAL", Length: 10, Scale: 2}, "DECIMAL(10,2)", AffinityNumeric},
		{"bigint unsigned", DataType{Name: "BIGINT", Unsigned: true}, "BIGINT UNSIGNED", AffinityInteger},
		{"TINYINT(1) UNSIGNED", DataType{Name: "TINYINT", Length: 1, Unsigned: true}, "TINYINT(1) UNSIGNED", AffinityInteger},
		{" datetime ", DataType{Name: "DATETIME"}, "DATETIME", AffinityNumeric},
		{"bytea", DataType{Name: "BLOB"}, "BLOB", AffinityBlob},
		{"DOUBLE", DataType{Name: "DOUBLE"}, "DOUBLE", AffinityReal},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDataType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rendered, got.String())
			assert.Equal(t, tt.affinity, got.Affinity())
		})
	}
}

func TestParseDataType_Unknown(t *testing.T) {
	inputs := []string{"MONEY", "VARCHAR(", "VARCHAR(abc)", "DECIMAL(1,2,3)", "", "INTEGER(-1)"}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := ParseDataType(input)
			require.Error(t, err)
			assert.True(t, IsUnknownTypeError(err))
			assert.True(t, IsUnknownTypeError(fmt.Errorf("wrapped: %w", err)))

			var ute *UnknownTypeError
			require.ErrorAs(t, err, &ute)
			assert.Equal(t, input, ute.Type)
		})
	}
}

func TestMustParseDataType_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParseDataType("NOPE") })
	assert.NotPanics(t, func() { MustParseDataType("TEXT") })
}
