package simhash

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf_OrderIndependent(t *testing.T) {
	a := []string{"https://x/product/1", "https://x/product/2", "https://x/product/3"}
	b := []string{"https://x/product/3", "https://x/product/1", "https://x/product/2"}
	assert.Equal(t, Of(a), Of(b))
}

func TestOf_Empty(t *testing.T) {
	assert.Zero(t, Of(nil))
	assert.Zero(t, OfText("  \t\n "))
}

func TestOf_SingleToken(t *testing.T) {
	fp := Of([]string{"hello"})
	assert.NotZero(t, fp)
	assert.Equal(t, fp, OfText("hello"))
}

func TestOf_DifferentSets(t *testing.T) {
	var a, b []string
	for i := 0; i < 48; i++ {
		a = append(a, "https://x/product/a"+string(rune('A'+i)))
		b = append(b, "https://x/product/b"+string(rune('A'+i)))
	}
	assert.Greater(t, Distance(Of(a), Of(b)), 5)
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		want int
	}{
		{"identical", 0xFF, 0xFF, 0},
		{"all different", 0, ^uint64(0), 64},
		{"one bit", 0, 1, 1},
		{"two bits", 0, 3, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Distance(tt.a, tt.b))
		})
	}
}

func TestSimilar_Threshold(t *testing.T) {
	fp1 := OfText("the quick brown fox")
	fp2 := OfText("a completely different text about nothing related")
	d := Distance(fp1, fp2)

	assert.True(t, Similar(fp1, fp1, 0))
	assert.False(t, Similar(fp1, fp2, d-1))
	assert.True(t, Similar(fp1, fp2, d))
}

func TestTracker(t *testing.T) {
	page1 := Of([]string{"/product/1", "/product/2"})
	page2 := Of([]string{"/product/3", "/product/4", "/product/5", "/product/6"})

	tr := NewTracker(3)
	assert.False(t, tr.Repeated(page1), "first page never repeats")
	assert.False(t, tr.Repeated(page2))
	assert.True(t, tr.Repeated(page2), "clamped page served twice")
}

func TestTracker_Disabled(t *testing.T) {
	tr := NewTracker(-1)
	fp := OfText("same")
	assert.False(t, tr.Repeated(fp))
	assert.False(t, tr.Repeated(fp))
}
