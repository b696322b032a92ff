package deploy

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Failure records one failed job.
type Failure struct {
	// Subject names what the job acted on - the bound service if there is
	// one, otherwise the job's own description.
	Subject string

	// Err is the failure cause.
	Err error
}

func (f Failure) String() string {
	return fmt.Sprintf("%s failed: %s", f.Subject, f.Err)
}

// Execute runs every job in order.  A failed job is recorded and its
// siblings still run; a broken reload of one daemon is no reason to leave
// another on an expired certificate.  The returned list is in execution
// order and empty on total success.
func Execute(jobs []Job) []Failure {
	var failures []Failure
	for _, job := range jobs {
		err := job.Run()
		if err == nil {
			continue
		}
		log.Error().Err(err).Str("subject", job.Subject()).Msg("job failed")
		failures = append(failures, Failure{Subject: job.Subject(), Err: err})
	}
	return failures
}
