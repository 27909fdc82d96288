package utils

import (
	"math/rand"
	"time"
)

type Backoff struct {
	base       time.Duration
	maxRetries int
}

func NewBackoff(base time.Duration, maxRetries int) Backoff {
	return Backoff{base: base, maxRetries: maxRetries}
}

// Do runs fn until it succeeds or the retries run out, sleeping
// exponentially (plus jitter) between attempts.
func (b Backoff) Do(fn func(i int) error) error {
	var err error
	for i := 0; i <= b.maxRetries; i++ {
		err = fn(i)
		if err == nil {
			return nil
		}
		if i == b.maxRetries {
			break
		}
		t := time.Duration(1<<i) * b.base
		t += time.Duration(rand.Intn(150)) * time.Millisecond
		time.Sleep(t)
	}
	return err
}
