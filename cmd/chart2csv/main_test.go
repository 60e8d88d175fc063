package main

import (
	"testing"

	"github.com/chartsnap/chart2csv/internal/chart"
)

func TestParseCrop(t *testing.T) {
	box, err := parseCrop("10,20,300,400")
	if err != nil {
		t.Fatalf("parseCrop failed: %v", err)
	}
	want := chart.CropBox{X1: 10, Y1: 20, X2: 300, Y2: 400}
	if box != want {
		t.Errorf("got %+v, want %+v", box, want)
	}

	for _, bad := range []string{"", "1,2,3", "a,b,c,d", "1,2,3,4,5"} {
		if _, err := parseCrop(bad); err == nil {
			t.Errorf("parseCrop(%q) accepted", bad)
		}
	}
}

func TestParseCalibration(t *testing.T) {
	cal, err := parseCalibration("20:0,280:10/280:0,20:5")
	if err != nil {
		t.Fatalf("parseCalibration failed: %v", err)
	}
	if cal.X[0] != (chart.Tick{Pixel: 20, Value: 0}) || cal.X[1] != (chart.Tick{Pixel: 280, Value: 10}) {
		t.Errorf("x ticks: %+v", cal.X)
	}
	if cal.Y[0] != (chart.Tick{Pixel: 280, Value: 0}) || cal.Y[1] != (chart.Tick{Pixel: 20, Value: 5}) {
		t.Errorf("y ticks: %+v", cal.Y)
	}
	if err := cal.Validate(); err != nil {
		t.Errorf("parsed calibration invalid: %v", err)
	}

	for _, bad := range []string{"", "1:2,3:4", "1:2,3:4/5:6", "a:b,c:d/e:f,g:h"} {
		if _, err := parseCalibration(bad); err == nil {
			t.Errorf("parseCalibration(%q) accepted", bad)
		}
	}
}

func TestParseTick(t *testing.T) {
	tick, err := parseTick(" 150:2.5 ")
	if err != nil {
		t.Fatalf("parseTick failed: %v", err)
	}
	if tick.Pixel != 150 || tick.Value != 2.5 {
		t.Errorf("got %+v", tick)
	}

	if _, err := parseTick("150"); err == nil {
		t.Error("parseTick without colon accepted")
	}
	if _, err := parseTick("x:1"); err == nil {
		t.Error("parseTick with bad pixel accepted")
	}
}
