package deploy

import "github.com/rs/zerolog/log"

// JobRef is a mapping value holding either one job or an ordered
// collection of jobs for a single domain.
type JobRef struct {
	jobs []Job
}

// One wraps a single job.
func One(job Job) JobRef {
	return JobRef{jobs: []Job{job}}
}

// Many wraps an ordered collection of jobs.
func Many(jobs ...Job) JobRef {
	return JobRef{jobs: jobs}
}

// Jobs returns the referenced jobs in order.
func (r JobRef) Jobs() []Job {
	return r.jobs
}

// Routes maps a domain, matched literally ("*.example.com" is a key, not a
// glob), to the jobs deploying its certificate.
type Routes map[string]JobRef

// Resolve expands the renewed domains against the routes into a flat,
// ordered job list.  Unmapped domains are skipped; the certificate may well
// cover names this host serves nothing for.  The final job, if any, is
// appended once, even when no domain matched.
func Resolve(domains []string, routes Routes, final Job) []Job {
	var jobs []Job
	for _, domain := range domains {
		ref, ok := routes[domain]
		if !ok {
			log.Debug().Str("domain", domain).Msg("no route for domain, skipping")
			continue
		}
		jobs = append(jobs, ref.Jobs()...)
	}
	if final != nil {
		jobs = append(jobs, final)
	}
	return jobs
}
