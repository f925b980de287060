// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package model

import (
	"fmt"
	"math"
	"strconv"
)

const (
	coordinatesPerDegree = 1e-9
)

// Degrees is a latitude or longitude in decimal degrees.
type Degrees float64

// Epsilon is a comparison precision in degrees.
type Epsilon float64

const (
	MinutesPerDegree = 60
	SecondsPerDegree = 3600

	// E7 is the precision of coordinates stored at the default granularity.
	E7 Epsilon = 1e-7
)

func (d Degrees) String() string {
	var sign string
	if d < 0 {
		sign = "-"
	}

	val := math.Abs(float64(d))
	degrees := int(math.Floor(val))
	minutes := int(math.Floor(MinutesPerDegree * (val - float64(degrees))))
	seconds := SecondsPerDegree * (val - float64(degrees) - (float64(minutes) / MinutesPerDegree))

	return fmt.Sprintf("%s%d° %d' %s\"", sign, degrees, minutes, ftoa(seconds))
}

func (d Degrees) MarshalJSON() ([]byte, error) {
	return []byte(ftoa(float64(d))), nil
}

// EqualWithin reports whether both values round to the same multiple of eps.
func (d Degrees) EqualWithin(o Degrees, eps Epsilon) bool {
	return math.Round(float64(d)/float64(eps)) == math.Round(float64(o)/float64(eps))
}

// ToDegrees converts a raw block coordinate into degrees:
// 1e-9 * (offset + granularity * coordinate).
func ToDegrees(offset int64, granularity int32, coordinate int64) Degrees {
	return coordinatesPerDegree * Degrees(offset+(int64(granularity)*coordinate))
}

// ToCoordinate is the inverse of ToDegrees, rounding to the nearest raw
// coordinate.
func ToCoordinate(offset int64, granularity int32, d Degrees) int64 {
	return int64(math.Round((float64(d)/coordinatesPerDegree - float64(offset)) / float64(granularity)))
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
