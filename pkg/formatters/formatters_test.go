package formatters_test

import (
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Gomega convention

	"github.com/joe/offloader/pkg/formatters"
)

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    int64
		expected string
	}{
		{name: "bytes", input: 512, expected: "512.0 B"},
		{name: "kilobytes", input: 2048, expected: "2.0 KB"},
		{name: "megabytes", input: 5 * 1024 * 1024, expected: "5.0 MB"},
		{name: "gigabytes", input: 3 * 1024 * 1024 * 1024, expected: "3.0 GB"},
		{name: "fractional gigabytes", input: 1536 * 1024 * 1024, expected: "1.5 GB"},
		{name: "zero", input: 0, expected: "0.0 B"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			gomega := NewWithT(t)

			gomega.Expect(formatters.FormatBytes(testCase.input)).To(Equal(testCase.expected))
		})
	}
}

func TestFormatSpeed(t *testing.T) {
	t.Parallel()

	gomega := NewWithT(t)

	gomega.Expect(formatters.FormatSpeed(1024 * 1024)).To(Equal("1.0 MB/s"))
	gomega.Expect(formatters.FormatSpeed(0)).To(Equal("0.0 B/s"))
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    time.Duration
		expected string
	}{
		{name: "seconds only", input: 42 * time.Second, expected: "42s"},
		{name: "minutes and seconds", input: 3*time.Minute + 12*time.Second, expected: "3m 12s"},
		{name: "hours and minutes", input: 2*time.Hour + 5*time.Minute, expected: "2h 5m"},
		{name: "zero", input: 0, expected: "0s"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			gomega := NewWithT(t)

			gomega.Expect(formatters.FormatDuration(testCase.input)).To(Equal(testCase.expected))
		})
	}
}

func TestFormatETA(t *testing.T) {
	t.Parallel()

	gomega := NewWithT(t)

	gomega.Expect(formatters.FormatETA(0)).To(Equal("almost done"))
	gomega.Expect(formatters.FormatETA(-5 * time.Second)).To(Equal("almost done"))
	gomega.Expect(formatters.FormatETA(90 * time.Second)).To(Equal("1m 30s remaining"))
}
