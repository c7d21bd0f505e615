package form

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMIMEType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MIMEType
		wantErr bool
	}{
		{name: "pdf", input: "application/pdf", want: MIMEPDF},
		{name: "pdf with params", input: "Application/PDF; charset=binary", want: MIMEPDF},
		{name: "docx", input: string(MIMEDOCX), want: MIMEDOCX},
		{name: "legacy word", input: "application/msword", wantErr: true},
		{name: "image", input: "image/jpeg", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMIMEType(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnsupportedFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProfile_Validate(t *testing.T) {
	assert.NoError(t, Profile{Email: "ayse@example.com"}.Validate())

	err := Profile{Name: "Ayşe Yılmaz"}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestField_InBounds(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		want  bool
	}{
		{name: "inside", field: Field{X: 10, Y: 10}, want: true},
		{name: "origin", field: Field{X: 0, Y: 0}, want: true},
		{name: "x on right edge", field: Field{X: 612, Y: 10}, want: false},
		{name: "y on bottom edge", field: Field{X: 10, Y: 792}, want: false},
		{name: "negative x", field: Field{X: -1, Y: 10}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.field.InBounds(612, 792))
		})
	}
}

func TestDetected_MinimumFieldCount(t *testing.T) {
	three := []Field{{Name: "a"}, {Name: "b"}, {Name: "c"}}
	res := Detected(three)
	assert.False(t, res.OK())
	assert.Nil(t, res.Fields)
	require.Error(t, res.Err())
	assert.True(t, errors.Is(res.Err(), ErrDetectionFailed))

	four := append(three, Field{Name: "d"})
	res = Detected(four)
	assert.True(t, res.OK())
	assert.NoError(t, res.Err())
	assert.Len(t, res.Fields, 4)

	// the result owns its slice
	four[0].Name = "changed"
	assert.Equal(t, "a", res.Fields[0].Name)
}

func TestError_IsAndUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewError(KindPDFLoad, "render", "cannot read document", cause)

	assert.True(t, errors.Is(err, ErrPDFLoad))
	assert.False(t, errors.Is(err, ErrRender))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "[PDF_LOAD_ERROR] render: cannot read document: boom", err.Error())

	wrapped := fmt.Errorf("pipeline: %w", err)
	var fe *Error
	require.True(t, errors.As(wrapped, &fe))
	assert.Equal(t, KindPDFLoad, fe.Kind)
	assert.NotEmpty(t, fe.UserMessage())
}

func TestDetectMIMEType(t *testing.T) {
	m, err := DetectMIMEType([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"))
	require.NoError(t, err)
	assert.Equal(t, MIMEPDF, m)

	_, err = DetectMIMEType([]byte("just some text"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}
