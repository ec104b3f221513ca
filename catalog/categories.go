/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ColorMarker is the per-directory file that declares a category's hue.
const ColorMarker = ".color"

// LoadCategories builds the category tree rooted at dir.  Every
// immediate subdirectory becomes one Category, colored by its mandatory
// ColorMarker file, with children loaded recursively.
//
// Sibling order follows os.ReadDir enumeration order.  Callers should
// treat that order as stable but unspecified.
func LoadCategories(dir string) ([]*Category, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	acc := make([]*Category, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(dir, entry.Name())

		colour, err := readColor(sub)
		if err != nil {
			// The editor can't render an uncolored category, so
			// the whole tree fails closed.
			return nil, err
		}

		children, err := LoadCategories(sub)
		if err != nil {
			return nil, err
		}

		acc = append(acc, &Category{
			Name:     entry.Name(),
			Colour:   colour,
			Children: children,
			Blocks:   []string{},
		})
	}

	return acc, nil
}

func readColor(dir string) (int, error) {
	bs, err := os.ReadFile(filepath.Join(dir, ColorMarker))
	if err != nil {
		return 0, fmt.Errorf("category %s: %s", dir, err)
	}
	colour, err := strconv.Atoi(strings.TrimSpace(string(bs)))
	if err != nil {
		return 0, fmt.Errorf("category %s: bad %s: %s", dir, ColorMarker, err)
	}
	return colour, nil
}
