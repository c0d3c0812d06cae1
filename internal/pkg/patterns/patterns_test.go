//
// Copyright (c) 2020-2021, NVIDIA CORPORATION. All rights reserved.
//
// See LICENSE.txt for license information
//

package patterns

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gvallee/go_pt2pt_profiler/pkg/world"
)

func makeMatrices(n int) *world.GroupedMatrices {
	return &world.GroupedMatrices{
		MsgsSent:  world.NewMatrix(n),
		BytesSent: world.NewMatrix(n),
	}
}

func TestDetectFanOut(t *testing.T) {
	gm := makeMatrices(128)
	for dst := 1; dst < 128; dst++ {
		gm.MsgsSent.Set(0, dst, 1)
		gm.BytesSent.Set(0, dst, 64)
	}

	d := Detect(gm)
	if len(d.Send) != 1 || d.Send[127] != 1 {
		t.Fatalf("detected send pattern %v", d.Send)
	}
	if len(d.Recv) != 1 || d.Recv[1] != 127 {
		t.Fatalf("detected recv pattern %v", d.Recv)
	}
	if !reflect.DeepEqual(d.Shapes(), []string{"1 to N"}) {
		t.Fatalf("Shapes() returned %v", d.Shapes())
	}
}

func TestDetectFunnel(t *testing.T) {
	gm := makeMatrices(128)
	for src := 1; src < 128; src++ {
		gm.MsgsSent.Set(src, 0, 1)
		gm.BytesSent.Set(src, 0, 64)
	}

	d := Detect(gm)
	if len(d.Send) != 1 || d.Send[1] != 127 {
		t.Fatalf("detected send pattern %v", d.Send)
	}
	if !reflect.DeepEqual(d.Shapes(), []string{"N to 1"}) {
		t.Fatalf("Shapes() returned %v", d.Shapes())
	}
}

func TestDetectAllToAll(t *testing.T) {
	gm := makeMatrices(4)
	for src := 0; src < 4; src++ {
		for dst := 0; dst < 4; dst++ {
			gm.MsgsSent.Set(src, dst, 2)
			gm.BytesSent.Set(src, dst, 128)
		}
	}

	d := Detect(gm)
	if len(d.Send) != 1 || d.Send[4] != 4 {
		t.Fatalf("detected send pattern %v", d.Send)
	}
	if !reflect.DeepEqual(d.Shapes(), []string{"N to N"}) {
		t.Fatalf("Shapes() returned %v", d.Shapes())
	}
}

func TestDetectBytesOnlyPair(t *testing.T) {
	gm := makeMatrices(4)
	gm.BytesSent.Set(0, 1, 512)

	d := Detect(gm)
	if d.Send[1] != 1 || d.Recv[1] != 1 {
		t.Fatalf("detected pattern %v / %v", d.Send, d.Recv)
	}
}

func TestDetectEmpty(t *testing.T) {
	d := Detect(makeMatrices(4))
	if !d.Empty() {
		t.Fatalf("empty matrices produced pattern %v / %v", d.Send, d.Recv)
	}
	if len(d.Shapes()) != 0 {
		t.Fatalf("Shapes() returned %v", d.Shapes())
	}
}

func TestSame(t *testing.T) {
	gm := makeMatrices(4)
	gm.MsgsSent.Set(0, 1, 1)

	p1 := Detect(gm)
	p2 := Detect(gm)
	if !Same(p1, p2) {
		t.Fatalf("identical patterns compared as different")
	}

	gm.MsgsSent.Set(0, 2, 1)
	p3 := Detect(gm)
	if Same(p1, p3) {
		t.Fatalf("different patterns compared as equal")
	}
}

func TestWriteSummary(t *testing.T) {
	gm := makeMatrices(4)
	for src := 0; src < 4; src++ {
		for dst := 0; dst < 4; dst++ {
			gm.MsgsSent.Set(src, dst, 2)
			gm.BytesSent.Set(src, dst, 128)
		}
	}
	d := Detect(gm)

	path := filepath.Join(t.TempDir(), "patterns.txt")
	fd, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create() failed: %s", err)
	}
	defer fd.Close()

	err = WriteSummary(fd, d)
	if err != nil {
		t.Fatalf("WriteSummary() failed: %s", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile() failed: %s", err)
	}
	for _, line := range []string{
		"4 ranks sent to 4 other ranks",
		"4 ranks recv'd from 4 other ranks",
		"Detected shape(s): N to N",
	} {
		if !strings.Contains(string(content), line) {
			t.Fatalf("summary is missing %q:\n%s", line, string(content))
		}
	}
}

func TestWriteSummaryEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.txt")
	fd, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create() failed: %s", err)
	}
	defer fd.Close()

	err = WriteSummary(fd, Data{})
	if err != nil {
		t.Fatalf("WriteSummary() failed: %s", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile() failed: %s", err)
	}
	if !strings.Contains(string(content), "No messages were recorded for this component.") {
		t.Fatalf("unexpected summary for empty pattern:\n%s", string(content))
	}
}

func TestWriteSummaryNoShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.txt")
	fd, err := os.Create(path)
	if err != nil {
		t.Fatalf("os.Create() failed: %s", err)
	}
	defer fd.Close()

	// 1 rank sending to 3 peers matches none of the known shapes.
	d := Data{Send: map[int]int{3: 1}, Recv: map[int]int{1: 3}}
	err = WriteSummary(fd, d)
	if err != nil {
		t.Fatalf("WriteSummary() failed: %s", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("os.ReadFile() failed: %s", err)
	}
	if !strings.Contains(string(content), "Nothing special detected; no summary") {
		t.Fatalf("unexpected summary:\n%s", string(content))
	}
}
