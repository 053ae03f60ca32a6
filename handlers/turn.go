// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import "fmt"

// NumberToTurn renders a shop counter value as the label shown to people
// in line: a letter block that advances every hundred numbers, then two
// digits. 1 is A01, 100 is B00, and the letters wrap after Z.
func NumberToTurn(n int64) string {
	if n < 0 {
		n = -n
	}
	letter := 'A' + rune((n/100)%26)
	return fmt.Sprintf("%c%02d", letter, n%100)
}
