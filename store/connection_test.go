package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEdgeKey(t *testing.T) {
	assert.Equal(t, EdgeKey{UserID1: "a", UserID2: "b"}, NewEdgeKey("a", "b"))
	assert.Equal(t, EdgeKey{UserID1: "a", UserID2: "b"}, NewEdgeKey("b", "a"))
	assert.True(t, NewEdgeKey("x", "x").IsSelfLoop())
	assert.Equal(t, "a~b", NewEdgeKey("b", "a").String())
}

func TestParseEdgeKey(t *testing.T) {
	tests := []struct {
		input   string
		want    EdgeKey
		wantErr bool
	}{
		{input: "a~b", want: EdgeKey{UserID1: "a", UserID2: "b"}},
		{input: "b~a", want: EdgeKey{UserID1: "a", UserID2: "b"}},
		{input: "ab", wantErr: true},
		{input: "~b", wantErr: true},
		{input: "a~", wantErr: true},
		{input: "a~b~c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseEdgeKey(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateParticipantID(t *testing.T) {
	assert.True(t, ValidateParticipantID("user-1"))
	assert.False(t, ValidateParticipantID(""))
	assert.False(t, ValidateParticipantID("a~b"))
}

func TestSplitSQL(t *testing.T) {
	script := `-- header
CREATE TABLE a (x TEXT DEFAULT 'a;b');
INSERT INTO a VALUES ('c'); -- trailing
CREATE INDEX i ON a (x)`
	statements := splitSQL(script)
	require.Len(t, statements, 3)
	assert.Equal(t, "CREATE TABLE a (x TEXT DEFAULT 'a;b')", statements[0])
	assert.Equal(t, "INSERT INTO a VALUES ('c')", statements[1])
	assert.Equal(t, "CREATE INDEX i ON a (x)", statements[2])
}
