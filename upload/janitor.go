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

package upload

import (
	"errors"
	"sync"
	"time"

	"github.com/herdgo/herd/api/types"
	"github.com/robfig/cron/v3"
)

// Janitor purges stale cached uploads on a cron schedule with seconds, e.g. `0 */10 * * * *`.
type Janitor struct {
	store  *Store
	spec   string
	maxAge time.Duration
	cron   *cron.Cron
	logger types.Logger
	mu     sync.Mutex
}

// NewJanitor creates a stopped Janitor.
func NewJanitor(store *Store, spec string, maxAge time.Duration, logger types.Logger) *Janitor {
	return &Janitor{store: store, spec: spec, maxAge: maxAge, logger: types.NewLogger(logger)}
}

// Start schedules the purge. Starting a running janitor is a no-op.
func (j *Janitor) Start() error {
	if j.spec == "" {
		return errors.New("janitor: empty schedule")
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cron != nil {
		return nil
	}
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(j.spec, j.run); err != nil {
		return err
	}
	c.Start()
	j.cron = c
	return nil
}

// Stop cancels the schedule and waits for a running purge.
func (j *Janitor) Stop() {
	j.mu.Lock()
	c := j.cron
	j.cron = nil
	j.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (j *Janitor) run() {
	defer func() {
		if e := recover(); e != nil {
			j.logger.Printf("upload janitor err :%v", e)
		}
	}()
	n, err := j.store.Purge(j.maxAge)
	if err != nil {
		j.logger.Printf("upload janitor: %v", err)
		return
	}
	if n > 0 {
		j.logger.Printf("upload janitor: removed %d stale files from %s", n, j.store.Dir())
	}
}
