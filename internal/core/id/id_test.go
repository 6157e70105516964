package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSort_MatchesStringOrder(t *testing.T) {
	a := MustParse("00000000-0000-7000-8000-00000000000a")
	b := MustParse("0190aaaa-0000-7000-8000-000000000001")
	c := MustParse("f0000000-0000-4000-8000-000000000000")

	ids := []ID{c, a, b}
	Sort(ids)

	assert.Equal(t, []ID{a, b, c}, ids)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1].String(), ids[i].String())
	}
}

func TestNew_IsVersion7(t *testing.T) {
	v := New()
	assert.EqualValues(t, 7, v.Version())
	assert.False(t, IsNil(v))
	assert.True(t, IsNil(Nil()))
}
