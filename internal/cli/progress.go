package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"resumeforensics/internal/session"
)

const phasePollInterval = 100 * time.Millisecond

// withPhases runs fn while echoing the session's phase text to w as it changes.
func withPhases(s *session.Session, w io.Writer, fn func() error) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(phasePollInterval)
		defer ticker.Stop()
		last := ""
		show := func() {
			if phase := s.Snapshot().Phase; phase != "" && phase != last {
				fmt.Fprintf(w, "  %s\n", phase)
				last = phase
			}
		}
		for {
			show()
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()

	err := fn()
	close(stop)
	wg.Wait()
	return err
}
