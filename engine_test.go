package crowdcount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {

	s := Shape{1, 3, 480, 640}

	assert.Equal(t, 3*480*640, s.Elements())
	assert.Equal(t, 0, Shape{}.Elements())
	assert.True(t, s.Equal(Shape{1, 3, 480, 640}))
	assert.False(t, s.Equal(Shape{1, 3, 640, 480}))
	assert.False(t, s.Equal(Shape{3, 480, 640}))
	assert.Equal(t, "[1 3 480 640]", s.String())
}

func TestNewTensor(t *testing.T) {

	tensor, err := NewTensor(Shape{1, 1, 2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Len(t, tensor.Data, 4)

	_, err = NewTensor(Shape{1, 1, 2, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrShape)
}
