/*
 * Copyright 2024 The Herd Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cast converts loosely typed values, wire strings mostly, into Go
// scalars. String parsing goes through strconv and never depends on the
// locale; surrounding spaces are ignored.
package cast

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ToInt converts an interface{} to int.
// It returns 0 if conversion fails.
func ToInt(value interface{}) int {
	v, _ := ToIntE(value)
	return v
}

// ToIntE converts an interface{} to int with error handling.
func ToIntE(value interface{}) (int, error) {
	i, err := ToInt64E(value)
	if err != nil {
		return 0, err
	}
	if int64(int(i)) != i {
		return 0, fmt.Errorf("unable to cast %v to int: out of range", value)
	}
	return int(i), nil
}

// ToInt64E converts an interface{} to int64 with error handling.
// Floats are truncated.
func ToInt64E(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int64:
		return v, nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case float32:
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	default:
		return 0, fmt.Errorf("unable to cast %v of type %T to int64", value, value)
	}
}

// ToUint64E converts an interface{} to uint64 with error handling.
// Negative numbers are an error.
func ToUint64E(value interface{}) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case uint:
		return uint64(v), nil
	case uint8:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint32:
		return uint64(v), nil
	case string:
		return strconv.ParseUint(strings.TrimSpace(v), 10, 64)
	default:
		i, err := ToInt64E(value)
		if err != nil {
			return 0, fmt.Errorf("unable to cast %v of type %T to uint64", value, value)
		}
		if i < 0 {
			return 0, fmt.Errorf("unable to cast negative %v to uint64", value)
		}
		return uint64(i), nil
	}
}

// ToDurationE converts an interface{} to time.Duration with error handling.
// Integers are nanoseconds, strings use time.ParseDuration syntax.
func ToDurationE(value interface{}) (time.Duration, error) {
	switch v := value.(type) {
	case time.Duration:
		return v, nil
	case string:
		return time.ParseDuration(strings.TrimSpace(v))
	default:
		i, err := ToInt64E(value)
		if err != nil {
			return 0, fmt.Errorf("unable to cast %v of type %T to time.Duration", value, value)
		}
		return time.Duration(i), nil
	}
}

// ToBool converts an interface{} to bool.
// It returns false if conversion fails.
func ToBool(value interface{}) bool {
	v, _ := ToBoolE(value)
	return v
}

// ToBoolE converts an interface{} to bool with error handling.
// Strings are "true" or "false" in any case, or "1" and "0".
func ToBoolE(value interface{}) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		i, _ := ToInt64E(v)
		return i != 0, nil
	case float32:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		s := strings.TrimSpace(v)
		switch {
		case strings.EqualFold(s, "true"), s == "1":
			return true, nil
		case strings.EqualFold(s, "false"), s == "0":
			return false, nil
		}
		return false, fmt.Errorf("unable to cast %q to bool", v)
	default:
		return false, fmt.Errorf("unable to cast %v of type %T to bool", value, value)
	}
}

// ToFloat64E converts an interface{} to float64 with error handling.
func ToFloat64E(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	default:
		i, err := ToInt64E(value)
		if err != nil {
			return 0, fmt.Errorf("unable to cast %v of type %T to float64", value, value)
		}
		return float64(i), nil
	}
}
