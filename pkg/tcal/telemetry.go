package tcal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Angle telemetry arrives as fixed-width ORBTATTD text records. Two
// independent streams feed the pipeline: .spm carries sun elevation
// (last field of the record) and .oat carries the sensor emission
// angle (columns 233-242). Timestamp fields are shared by both.

type TelemetryField int

const (
	FieldSunElevation TelemetryField = iota
	FieldEmissionAngle
)

const orbtattdPrefix = "ORBTATTD"

// ParseTelemetry builds an AngleSeries from a record stream. Each line
// either contributes one sample or is rejected; rejects are counted,
// not reported individually. The returned series is sorted by time.
func ParseTelemetry(r io.Reader, field TelemetryField) (AngleSeries, int) {
	samples := []AngleSample{}
	rejected := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, orbtattdPrefix) {
			continue
		}
		sample, err := parseORBTATTD(line, field)
		if err != nil {
			rejected++
			continue
		}
		samples = append(samples, sample)
	}

	return NewAngleSeries(samples), rejected
}

// LoadTelemetry reads one telemetry file. A missing or unreadable file
// is ErrGeometryUnavailable - the caller degrades to fallback
// geometry, it is not a pipeline failure.
func LoadTelemetry(path string, field TelemetryField) (AngleSeries, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: open %s: %v", ErrGeometryUnavailable, path, err)
	}
	defer f.Close()

	series, rejected := ParseTelemetry(f, field)
	return series, rejected, nil
}

func parseORBTATTD(line string, field TelemetryField) (AngleSample, error) {
	t, err := parseTelemetryTime(line)
	if err != nil {
		return AngleSample{}, err
	}

	var angle float64
	switch field {
	case FieldSunElevation:
		// Sun elevation is the trailing field of the record.
		parts := strings.Fields(line)
		angle, err = strconv.ParseFloat(parts[len(parts)-1], 64)
	case FieldEmissionAngle:
		if len(line) < 242 {
			return AngleSample{}, fmt.Errorf("record too short for emission field: %d cols", len(line))
		}
		angle, err = strconv.ParseFloat(strings.TrimSpace(line[233:242]), 64)
	default:
		return AngleSample{}, fmt.Errorf("unknown telemetry field %d", field)
	}
	if err != nil {
		return AngleSample{}, fmt.Errorf("angle field: %v", err)
	}

	return AngleSample{Time: t, Angle: angle}, nil
}

// parseTelemetryTime decodes the shared timestamp columns. The year is
// carried as the low four decimal digits of the day-count field offset
// from 2000; that is the wire format's contract, odd as it looks.
func parseTelemetryTime(line string) (time.Time, error) {
	if len(line) < 42 {
		return time.Time{}, fmt.Errorf("record too short for timestamp: %d cols", len(line))
	}

	dayField, err := fixedInt(line, 14, 22)
	if err != nil {
		return time.Time{}, err
	}
	month, err := fixedInt(line, 22, 26)
	if err != nil {
		return time.Time{}, err
	}
	day, err := fixedInt(line, 26, 30)
	if err != nil {
		return time.Time{}, err
	}
	hour, err := fixedInt(line, 30, 34)
	if err != nil {
		return time.Time{}, err
	}
	minute, err := fixedInt(line, 34, 38)
	if err != nil {
		return time.Time{}, err
	}
	second, err := fixedInt(line, 38, 42)
	if err != nil {
		return time.Time{}, err
	}

	year := 2000 + dayField%10000
	if month < 1 || month > 12 || day < 1 || day > 31 ||
		hour > 23 || minute > 59 || second > 60 {
		return time.Time{}, fmt.Errorf("timestamp fields out of range: %d-%d-%d %d:%d:%d",
			year, month, day, hour, minute, second)
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), nil
}

func fixedInt(line string, from, to int) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(line[from:to]))
	if err != nil {
		return 0, fmt.Errorf("cols %d:%d: %v", from, to, err)
	}
	return v, nil
}
