package ingest

import "testing"

func TestParseWeight(t *testing.T) {
	cases := []struct {
		name string
		kg   string
	}{
		{"Spinach(1kg)", "1"},
		{"Item(4kg)", "4"},
		{"Garlic 500g", "0.5"},
		{"Eggs 10개", "0.6"},
		{"Eggs(30개)", "1.8"},
		{"Carton 10 eggs", "0.6"},
		{"Peach(2.5kg)", "2.5"},
	}
	for _, c := range cases {
		weight, ok := ParseWeight(c.name)
		if !ok {
			t.Fatalf("ParseWeight(%q) 应解析成功", c.name)
		}
		if weight.String() != c.kg {
			t.Fatalf("ParseWeight(%q) = %s, 期望 %s kg", c.name, weight, c.kg)
		}
	}
}

func TestParseWeightUnparseable(t *testing.T) {
	for _, name := range []string{"Spinach", "Beef per serving", "", "Item(0kg)"} {
		if _, ok := ParseWeight(name); ok {
			t.Fatalf("ParseWeight(%q) 不应解析成功", name)
		}
	}
}

func TestNormalizePrice(t *testing.T) {
	cases := []struct {
		name  string
		price int64
		want  int64
	}{
		// 8000 ÷ 4kg
		{"Item(4kg)", 8000, 2000},
		// 10 개 = 0.6kg, 3000 ÷ 0.6
		{"Eggs 10개", 3000, 5000},
		{"Garlic 500g", 4500, 9000},
		// no unit token: raw price unchanged
		{"Spinach", 4980, 4980},
		{"Spinach(1kg)", 4980, 4980},
	}
	for _, c := range cases {
		if got := NormalizePrice(c.price, c.name); got != c.want {
			t.Fatalf("NormalizePrice(%d, %q) = %d, 期望 %d", c.price, c.name, got, c.want)
		}
	}
}
