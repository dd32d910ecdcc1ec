// Copyright 2016 by Thorsten von Eicken, see LICENSE file
// Modified 2022 by Dan Crank, danno@danno.org

package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Sensor ids carried in the payload.
const (
	SensorTemp  byte = 0x00
	SensorCO    byte = 0x01
	SensorLight byte = 0x02
	SensorH2S   byte = 0x03
)

var sensorNames = map[string]byte{
	"temp":  SensorTemp,
	"co":    SensorCO,
	"light": SensorLight,
	"h2s":   SensorH2S,
}

// reading is one sensor sample.
type reading struct {
	id    byte
	value uint16
}

// sampler produces readings for one sensor id.
type sampler interface {
	ID() byte
	Sample() (uint16, error)
}

// fileSampler reads an integer from a sysfs style file and scales it, e.g.
// /sys/class/thermal/thermal_zone0/temp in millidegrees.
type fileSampler struct {
	id    byte
	path  string
	scale int
}

func (s *fileSampler) ID() byte { return s.id }

func (s *fileSampler) Sample() (uint16, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, errors.Wrapf(err, "sensor %s", s.path)
	}
	if s.scale > 1 {
		v /= s.scale
	}
	if v < 0 {
		v = 0
	}
	if v > 0xFFFF {
		v = 0xFFFF
	}
	return uint16(v), nil
}

// counterSampler reports an incrementing value, for link tests without a
// real sensor.
type counterSampler struct {
	id byte
	n  uint16
}

func (s *counterSampler) ID() byte { return s.id }

func (s *counterSampler) Sample() (uint16, error) {
	s.n++
	return s.n, nil
}

// parseSensor parses "name" or "name=path[/scale]".
func parseSensor(spec string) (sampler, error) {
	name, path, hasPath := strings.Cut(spec, "=")
	id, ok := sensorNames[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown sensor %q", name)
	}
	if !hasPath {
		return &counterSampler{id: id}, nil
	}
	scale := 1
	if i := strings.LastIndex(path, "/"); i >= 0 {
		if n, err := strconv.Atoi(path[i+1:]); err == nil && i > 0 {
			path, scale = path[:i], n
		}
	}
	return &fileSampler{id: id, path: path, scale: scale}, nil
}

// encode packs readings as {id, msb, lsb} triples.
func encode(readings []reading) []byte {
	buf := make([]byte, 0, 3*len(readings))
	for _, r := range readings {
		buf = append(buf, r.id, byte(r.value>>8), byte(r.value))
	}
	return buf
}
