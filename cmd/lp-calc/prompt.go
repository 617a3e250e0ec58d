package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// prompter читает числа со stdin и переспрашивает, пока ввод не станет валидным.
type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewScanner(in), out: out}
}

// float спрашивает label до тех пор, пока check не вернёт "".
// Конец ввода возвращает io.ErrUnexpectedEOF.
func (p *prompter) float(label string, check func(float64) string) (float64, error) {
	for {
		fmt.Fprint(p.out, label)
		if !p.in.Scan() {
			if err := p.in.Err(); err != nil {
				return 0, err
			}
			return 0, io.ErrUnexpectedEOF
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(p.in.Text()), 64)
		if err != nil {
			fmt.Fprintln(p.out, "Invalid input. Please enter a number.")
			continue
		}
		if msg := check(v); msg != "" {
			fmt.Fprintln(p.out, msg)
			continue
		}
		return v, nil
	}
}

func positiveNumber(v float64) string {
	if !(v > 0) || v > maxInput {
		return "Please enter a positive number."
	}
	return ""
}

func above(min float64) func(float64) string {
	return func(v float64) string {
		if msg := positiveNumber(v); msg != "" {
			return msg
		}
		if v <= min {
			return "Maximum price must be greater than the minimum price."
		}
		return ""
	}
}
