// Package deploy turns a set of renewed domains into service lifecycle
// jobs and runs them with per-job failure isolation.
package deploy

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/deploycert/deploycert/storage"
	"github.com/deploycert/deploycert/svcmgr"
)

// A Job is one deferred unit of deployment work.  Subject names whatever
// the job acts on, for failure reporting.
type Job interface {
	Run() error
	Subject() string
}

// ServiceAction applies one lifecycle action to a service.
type ServiceAction struct {
	Service *svcmgr.Service
	Action  svcmgr.Action
}

// Run applies the action.  Whether a command is actually issued is decided
// by the service's run-scoped state.
func (a ServiceAction) Run() error {
	return a.Service.Apply(a.Action)
}

// Subject is the bound service's name.
func (a ServiceAction) Subject() string {
	return a.Service.Name
}

func (a ServiceAction) String() string {
	return fmt.Sprintf("%s %s", a.Action, a.Service)
}

// MergeBundle concatenates the renewed key and chain into a single PEM
// bundle at Destination, then restarts the bound service.  Some daemons
// (quassel, for one) refuse split key/cert files and ignore symlinks.
type MergeBundle struct {
	// Lineage is the renewal directory holding privkey.pem and fullchain.pem.
	Lineage string

	// Destination is the bundle path the service reads.
	Destination string

	// Service is restarted after the bundle is in place.
	Service *svcmgr.Service

	log zerolog.Logger
}

// NewMergeBundle builds a merge-and-restart job.
func NewMergeBundle(lineage, destination string, service *svcmgr.Service) *MergeBundle {
	return &MergeBundle{
		Lineage:     lineage,
		Destination: destination,
		Service:     service,
		log:         log.With().Str("service", service.Name).Str("bundle", destination).Logger(),
	}
}

// Run writes the bundle and restarts the service.
func (m *MergeBundle) Run() error {
	err := storage.MergeFiles(
		m.log,
		m.Destination,
		filepath.Join(m.Lineage, storage.KeyFile),
		filepath.Join(m.Lineage, storage.ChainFile),
	)
	if err != nil {
		return err
	}
	return m.Service.Restart()
}

// Subject is the bound service's name.
func (m *MergeBundle) Subject() string {
	return m.Service.Name
}

func (m *MergeBundle) String() string {
	return fmt.Sprintf("merge bundle %s for %s", m.Destination, m.Service)
}

// CopyArtifacts copies the renewed key and chain, by their original names,
// into Destination.  No service is touched; daemons that watch their
// certificate directory pick the files up themselves.
type CopyArtifacts struct {
	// Lineage is the renewal directory holding privkey.pem and fullchain.pem.
	Lineage string

	// Destination is the directory receiving the copies.
	Destination string

	log zerolog.Logger
}

// NewCopyArtifacts builds a copy-only job.
func NewCopyArtifacts(lineage, destination string) *CopyArtifacts {
	return &CopyArtifacts{
		Lineage:     lineage,
		Destination: destination,
		log:         log.With().Str("destination", destination).Logger(),
	}
}

// Run copies both artifacts.
func (c *CopyArtifacts) Run() error {
	return storage.CopyFiles(c.log, c.Lineage, c.Destination, storage.KeyFile, storage.ChainFile)
}

// Subject identifies the job by its destination directory.
func (c *CopyArtifacts) Subject() string {
	return c.String()
}

func (c *CopyArtifacts) String() string {
	return fmt.Sprintf("copy certificates to %s", c.Destination)
}
