package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestFormatAccessEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[1])
	output := buf.String()

	for _, want := range []string{
		"2026-03-14T09:26:54.000000Z",
		"[sess:5f0c1d2e]",
		"STORE",
		"WRITE",
		"Attribute: data_1",
		`Input: "42\n" (3 bytes consumed)`,
		"Outcome: ACCEPTED",
		"Value: 42",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestFormatTransportReadShowsPeer(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[3])
	output := buf.String()

	if !strings.Contains(output, "Peer: 192.0.2.7:51234  Request: 0d9e8f7a") {
		t.Errorf("expected peer line, got:\n%s", output)
	}
	if strings.Contains(output, "Input:") {
		t.Errorf("reads should not show input, got:\n%s", output)
	}
}

func TestFormatLifecycleEvent(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[0])
	output := buf.String()

	for _, want := range []string{"NAMESPACE", "PUBLISH", "Base: simple_sysfs_data", "Entries: 2", "Path: /sys/module/"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestFormatErrorEventWithoutSession(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, sampleEvents()[4])
	output := buf.String()

	for _, want := range []string{"[sess:-]", "Error: listener closed", "Context: serve"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
}

func TestRunViewFiltersByCategory(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	var buf bytes.Buffer
	if err := RunView(path, FilterOptions{Category: "lifecycle"}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	if !strings.Contains(output, "PUBLISH") || !strings.Contains(output, "TEARDOWN") {
		t.Errorf("expected lifecycle events, got:\n%s", output)
	}
	if strings.Contains(output, "WRITE") {
		t.Errorf("access events should be filtered out, got:\n%s", output)
	}
}

func TestRunViewInvalidFilter(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	if err := RunView(path, FilterOptions{Source: "nope"}, &bytes.Buffer{}); err == nil {
		t.Error("expected error for invalid source")
	}
}
