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

package maps

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
)

// Map2Struct decodes a settings map into output, matching `json` tags.
// Scalars convert weakly and durations may be given as strings like "30m".
func Map2Struct(input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

// DecodeTree decodes a generic tree of maps, slices and scalars, as produced
// from form keys or JSON, into output. Field names follow `json` tags,
// scalars are converted weakly ("1" into an int, 1 into "1") and an empty
// string leaves non-string fields at their zero value.
func DecodeTree(input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       stringHook,
		Result:           output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func stringHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	if s == "" {
		switch to.Kind() {
		case reflect.String, reflect.Interface:
			return data, nil
		case reflect.Ptr:
			return nil, nil
		default:
			return reflect.Zero(to).Interface(), nil
		}
	}
	switch to {
	case timeType:
		return time.Parse(time.RFC3339, s)
	case durationType:
		return time.ParseDuration(s)
	}
	return data, nil
}
