package flow

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kindOf(v any) Tag {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case int:
		return "int"
	default:
		return "other"
	}
}

func TestBuilder_OfType(t *testing.T) {
	src := FromSlice[any]("test", true, 2)

	got, err := NewTaggedBuilder(src, kindOf).OfType("bool").Unlimited().ToSlice(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []any{true}, got)
}

func TestBuilder_OfType_KeepsOrderAndOnlyMatchingVariants(t *testing.T) {
	src := FromSlice(
		act("form/email", 1),
		act("click/login", 2),
		act("form/password", 3),
		act("formstate/verified", 4),
		act("form/email", 5),
	)

	got, err := NewBuilder(src).OfType("form").Unlimited().ToSlice(testContext(t))
	require.NoError(t, err)

	var ns []int
	for _, a := range got {
		assert.True(t, a.Tag().Is("form"))
		ns = append(ns, a.n)
	}
	assert.Equal(t, []int{1, 3, 5}, ns, "formstate must not match the form group")
}

func TestBuilder_OfType_MultipleTags(t *testing.T) {
	src := FromSlice(act("a", 1), act("b", 2), act("c", 3))

	got, err := NewBuilder(src).OfType("a", "c").Unlimited().ToSlice(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []testAction{act("a", 1), act("c", 3)}, got)
}

func TestBuilder_Single(t *testing.T) {
	src := FromSlice[any]("test", true, 2)

	got, err := NewTaggedBuilder(src, kindOf).Any().Single().ToSlice(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []any{"test"}, got)
}

func TestBuilder_Count(t *testing.T) {
	values := []any{"test", true, 2}
	for i := 0; i < 100; i++ {
		values = append(values, i)
	}

	got, err := NewTaggedBuilder(FromSlice(values...), kindOf).Any().Count(32).ToSlice(testContext(t))
	require.NoError(t, err)
	assert.Len(t, got, 32)
}

func TestBuilder_Count_MinOfNAndTotal(t *testing.T) {
	tests := []struct {
		name  string
		total int
		n     int
		want  int
	}{
		{"fewer than n", 3, 10, 3},
		{"exactly n", 5, 5, 5},
		{"more than n", 10, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var values []testAction
			for i := 0; i < tt.total; i++ {
				values = append(values, act("x", i))
			}
			got, err := NewBuilder(FromSlice(values...)).Any().Count(tt.n).ToSlice(testContext(t))
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestBuilder_Count_FilteredValuesNotCounted(t *testing.T) {
	src := FromSlice(act("a", 1), act("b", 2), act("b", 3), act("a", 4), act("a", 5))

	got, err := NewBuilder(src).OfType("a").Count(2).ToSlice(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []testAction{act("a", 1), act("a", 4)}, got)
}

func TestBuilder_Count_PanicsOnNonPositive(t *testing.T) {
	b := NewBuilder(FromSlice[testAction]())
	assert.Panics(t, func() { b.Any().Count(0) })
}

func TestBuilder_NestedCounts(t *testing.T) {
	src := FromSlice(act("x", 1), act("x", 2), act("x", 3), act("x", 4))

	got, err := NewBuilder(src).Any().Count(3).
		Transform(func(s Stream[testAction]) Stream[testAction] { return s.take(2) }).
		ToSlice(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []testAction{act("x", 1), act("x", 2)}, got)
}

func TestActionFlow_Transform(t *testing.T) {
	src := FromSlice("test")
	b := NewTaggedBuilder(src, func(string) Tag { return "s" })

	got, err := b.Any().Unlimited().
		Transform(func(s Stream[string]) Stream[string] {
			return mapStream(s, func(_ context.Context, v string) (string, error) { return v + "1", nil })
		}).
		ToSlice(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"test1"}, got)
}

func TestMap_ChangesElementType(t *testing.T) {
	f := NewBuilder(FromSlice(act("x", 1), act("x", 2))).Any().Unlimited()

	got, err := Map(f, func(_ context.Context, a testAction) (string, error) {
		return strconv.Itoa(a.n), nil
	}).ToSlice(testContext(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, got)
}

func TestActionFlow_OnEach_ErrorEndsPipeline(t *testing.T) {
	boom := errors.New("boom")
	var seen []int

	err := NewBuilder(FromSlice(act("x", 1), act("x", 2), act("x", 3))).Any().Unlimited().
		OnEach(func(_ context.Context, a testAction) error {
			seen = append(seen, a.n)
			if a.n == 2 {
				return boom
			}
			return nil
		}).
		Collect(testContext(t), func(testAction) error { return nil })

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{1, 2}, seen)
}

func TestActionFlow_SecondTerminal_AlreadyStarted(t *testing.T) {
	b := NewBuilder(FromSlice(act("x", 1)))
	f := b.Any().Unlimited()
	derived := f.OnEach(func(context.Context, testAction) error { return nil })

	_, err := f.ToSlice(testContext(t))
	require.NoError(t, err)

	_, err = f.ToSlice(testContext(t))
	assert.True(t, IsAlreadyStarted(err))

	_, err = derived.Start(testContext(t), newInline())
	assert.True(t, IsAlreadyStarted(err), "derived flows share the source")

	_, err = Map(f, func(_ context.Context, a testAction) (int, error) { return a.n, nil }).ToSlice(testContext(t))
	assert.True(t, IsAlreadyStarted(err))
}

func TestTag_Is(t *testing.T) {
	tests := []struct {
		tag   Tag
		group Tag
		want  bool
	}{
		{"form/email", "form", true},
		{"form/email", "form/email", true},
		{"form", "form", true},
		{"formstate/verified", "form", false},
		{"form", "form/email", false},
		{"", "", false},
		{"form", "", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.tag.Is(tt.group), "%q.Is(%q)", tt.tag, tt.group)
	}
}

func TestTag_Valid(t *testing.T) {
	assert.True(t, Tag("form/email").Valid())
	assert.True(t, Tag("click").Valid())
	assert.False(t, Tag("").Valid())
	assert.False(t, Tag("form//email").Valid())
	assert.False(t, Tag("/form").Valid())
}
