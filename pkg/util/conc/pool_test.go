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

package conc

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/lk2023060901/xrt-go/pkg/util/merr"
)

type PoolSuite struct {
	suite.Suite
}

func (s *PoolSuite) TestSubmit() {
	pool := NewPool[int](4)
	defer pool.Release()

	futures := make([]*Future[int], 0, 16)
	for i := 0; i < 16; i++ {
		futures = append(futures, pool.Submit(func() (int, error) {
			return i * i, nil
		}))
	}
	s.NoError(AwaitAll(futures...))
	for i, f := range futures {
		s.Equal(i*i, f.Value())
	}
	s.Equal(4, pool.Cap())
}

func (s *PoolSuite) TestSubmitError() {
	pool := NewPool[string](2)
	defer pool.Release()

	boom := errors.New("boom")
	ok := pool.Submit(func() (string, error) { return "fine", nil })
	bad := pool.Submit(func() (string, error) { return "", boom })

	err := AwaitAll(ok, bad)
	s.ErrorIs(err, boom)
	s.True(ok.OK())
	s.False(bad.OK())
	_, err = bad.Await()
	s.ErrorIs(err, boom)
}

func (s *PoolSuite) TestConcealPanic() {
	pool := NewPool[int](1, WithConcealPanic(true))
	defer pool.Release()

	f := pool.Submit(func() (int, error) {
		panic("task exploded")
	})
	err := f.Err()
	s.Error(err)
	s.ErrorIs(err, merr.ErrServiceInternal)

	// 协程池在 panic 之后仍然可用
	s.Equal(7, pool.Submit(func() (int, error) { return 7, nil }).Value())
}

func (s *PoolSuite) TestPreHandler() {
	called := 0
	pool := NewPool[int](1, WithPreHandler(func() { called++ }))
	defer pool.Release()

	s.True(pool.Submit(func() (int, error) { return 1, nil }).OK())
	s.Equal(1, called)
}

func TestPool(t *testing.T) {
	suite.Run(t, new(PoolSuite))
}

func TestGo(t *testing.T) {
	f := Go(func() (int, error) { return 42, nil })
	<-f.Inner()
	assert.Equal(t, 42, f.Value())
}
