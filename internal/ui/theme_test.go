package ui

import "testing"

func TestEveryVariantHasItsOwnBar(t *testing.T) {
	seen := map[[3]string]string{}
	for _, v := range []string{StyleGreatHall, StyleParchment, StyleRetroTerminal, StyleTwilight} {
		bar := ThemeForVariant(v).Bar
		for i, hex := range bar {
			if len(hex) != 7 || hex[0] != '#' {
				t.Fatalf("%s: bar color %d is %q", v, i, hex)
			}
		}
		if other, ok := seen[bar]; ok {
			t.Fatalf("%s reuses the %s bar", v, other)
		}
		seen[bar] = v
	}
	if ThemeForVariant("unknown").Bar != DefaultTheme().Bar {
		t.Fatalf("expected unknown variants to fall back to the default theme")
	}
}
