package sweep

import (
	"math"
	"reflect"
	"testing"
)

func TestParseIntRangeSpec(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  IntRangeSpec
		expectErr bool
	}{
		{"valid_range", "1:10:2", IntRangeSpec{Min: 1, Max: 10, Step: 2}, false},
		{"with_spaces", " 1 : 10 : 2 ", IntRangeSpec{Min: 1, Max: 10, Step: 2}, false},
		{"geometric", "32:1024:x2", IntRangeSpec{Min: 32, Max: 1024, Factor: 2}, false},
		{"missing_parts", "1:10", IntRangeSpec{}, true},
		{"invalid_min", "abc:10:1", IntRangeSpec{}, true},
		{"invalid_max", "1:abc:1", IntRangeSpec{}, true},
		{"zero_step", "1:10:0", IntRangeSpec{}, true},
		{"factor_one", "1:10:x1", IntRangeSpec{}, true},
		{"geometric_from_zero", "0:10:x2", IntRangeSpec{}, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParseIntRangeSpec(tc.input)
			if tc.expectErr {
				if err == nil {
					t.Errorf("Expected error for input %q, got nil", tc.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if result != tc.expected {
				t.Errorf("Expected %+v, got %+v", tc.expected, result)
			}
		})
	}
}

func TestIntRangeSpecValues_FactorNearMaxInt(t *testing.T) {
	r := IntRangeSpec{Min: 1 << 61, Max: math.MaxInt, Factor: 2}
	got := r.Values()
	want := []int{1 << 61, 1 << 62}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}

	r = IntRangeSpec{Min: 3, Max: 81, Factor: 3}
	if got, want := r.Values(), []int{3, 9, 27, 81}; !reflect.DeepEqual(got, want) {
		t.Errorf("Values() = %v, want %v", got, want)
	}
}

func TestParseIntParamList(t *testing.T) {
	testCases := []struct {
		name      string
		input     string
		expected  []int
		expectErr bool
	}{
		{"empty", "", nil, false},
		{"csv", "4,8", []int{4, 8}, false},
		{"csv_blanks", "4, ,8,", []int{4, 8}, false},
		{"linear", "9:11:1", []int{9, 10, 11}, false},
		{"geometric", "32:1024:x2", []int{32, 64, 128, 256, 512, 1024}, false},
		{"inverted", "10:1:1", nil, true},
		{"bad_csv", "4,x", nil, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := ParseIntParamList(tc.input)
			if tc.expectErr {
				if err == nil {
					t.Errorf("Expected error for input %q, got nil", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !reflect.DeepEqual(result, tc.expected) {
				t.Errorf("Expected %v, got %v", tc.expected, result)
			}
		})
	}
}

func TestParseToggleList(t *testing.T) {
	got, err := ParseToggleList("yes, NO")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"YES", "NO"}) {
		t.Errorf("got %v", got)
	}

	if _, err := ParseToggleList("YES,off"); err == nil {
		t.Error("Expected error for invalid toggle")
	}
}
