package set

import (
	"cmp"
	"testing"
)

// Order wraps a primitive for use with a SortedSet.
type Order[T cmp.Ordered] struct {
	Item T
}

// Cmp implementation for the Comparable interface.
func (lhs Order[T]) Cmp(rhs Order[T]) int {
	return cmp.Compare(lhs.Item, rhs.Item)
}

func Test_SortedSet_01(t *testing.T) {
	s := NewSortedSet(order(3), order(1), order(2), order(1))
	//
	checkElements(t, s, 1, 2, 3)
}

func Test_SortedSet_02(t *testing.T) {
	s := NewSortedSet[Order[int]]()
	s.Insert(order(5))
	s.Insert(order(1))
	s.Insert(order(5))
	//
	checkElements(t, s, 1, 5)
}

func Test_SortedSet_03(t *testing.T) {
	s := NewSortedSet(order(1), order(3))
	q := NewSortedSet(order(2), order(3), order(4))
	s.InsertAll(q)
	//
	checkElements(t, s, 1, 2, 3, 4)
}

func Test_SortedSet_04(t *testing.T) {
	s := NewSortedSet(order(1), order(2))
	//
	if !s.Contains(order(1)) || s.Contains(order(3)) {
		t.Errorf("unexpected contents %v", s)
	}
}

func Test_SortedSet_05(t *testing.T) {
	s := NewSortedSet(order(1), order(2))
	//
	if !s.Remove(order(1)) || s.Remove(order(3)) {
		t.Errorf("unexpected removal outcome")
	}
	//
	checkElements(t, s, 2)
}

func order(i int) Order[int] {
	return Order[int]{i}
}

func checkElements(t *testing.T, s *SortedSet[Order[int]], expected ...int) {
	t.Helper()
	//
	arr := s.ToArray()
	//
	if len(arr) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, arr)
	}
	//
	for i := range arr {
		if arr[i].Item != expected[i] {
			t.Fatalf("expected %v, got %v", expected, arr)
		}
	}
}
