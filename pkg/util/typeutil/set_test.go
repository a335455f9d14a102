// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package typeutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/xrt-go/internal/json"
)

func TestSet(t *testing.T) {
	s := NewSet(1, 2, 3)
	s.Insert(3, 4)
	assert.Equal(t, 4, s.Len())
	assert.True(t, s.Contain(1, 4))
	assert.False(t, s.Contain(5))

	s.Remove(4)
	assert.False(t, s.Contain(4))
	assert.True(t, s.Equal(NewSet(3, 2, 1)))
	assert.False(t, s.Equal(NewSet(1, 2)))
	assert.True(t, s.Union(NewSet(9)).Contain(1, 9))
}

func TestSetJSON(t *testing.T) {
	s := NewSet(5, 10)
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var out Set[int]
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, s.Equal(out))

	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &out))
}

func TestConcurrentSet(t *testing.T) {
	set := NewConcurrentSet[string]()
	var wg sync.WaitGroup
	inserted := make(chan bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inserted <- set.Insert("same")
		}()
	}
	wg.Wait()
	close(inserted)

	wins := 0
	for ok := range inserted {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
	assert.True(t, set.Contain("same"))
	assert.Equal(t, 1, set.Len())
	set.Remove("same")
	assert.Equal(t, 0, set.Len())
}
