package monitor

import (
	"fmt"

	"github.com/you/lp-tools/internal/config"
)

type Direction int

const (
	None Direction = iota
	Above
	Below
)

func (d Direction) String() string {
	switch d {
	case Above:
		return "above"
	case Below:
		return "below"
	default:
		return "none"
	}
}

func parseDirection(s string) Direction {
	switch s {
	case "above":
		return Above
	case "below":
		return Below
	default:
		return None
	}
}

// Breach: выход ratio за один из порогов.
type Breach struct {
	Direction Direction
	Ratio     float64
	Threshold float64
}

// Evaluate сравнивает ratio с порогами строго: значение, равное порогу, нарушением не считается.
func Evaluate(ratio float64, th config.Thresholds) Breach {
	switch {
	case ratio > th.Upper:
		return Breach{Direction: Above, Ratio: ratio, Threshold: th.Upper}
	case ratio < th.Lower:
		return Breach{Direction: Below, Ratio: ratio, Threshold: th.Lower}
	default:
		return Breach{Direction: None, Ratio: ratio}
	}
}

// FormatAlert собирает Markdown-сообщение для Telegram.
func FormatAlert(label string, b Breach) string {
	switch b.Direction {
	case Above:
		return fmt.Sprintf("📈 %s ratio is above the upper threshold!\n\nCurrent Ratio: %.8f\nUpper Threshold: %.8f",
			label, b.Ratio, b.Threshold)
	case Below:
		return fmt.Sprintf("📉 %s ratio is below the lower threshold!\n\nCurrent Ratio: %.8f\nLower Threshold: %.8f",
			label, b.Ratio, b.Threshold)
	default:
		return ""
	}
}
