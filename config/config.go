// Package config loads the route file mapping renewed domains to the
// services and certificate artifacts that depend on them.
package config

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/deploycert/deploycert/deploy"
	"github.com/deploycert/deploycert/svcmgr"
	"github.com/deploycert/deploycert/util"
)

// JobEntry is one job definition under a route.  Exactly one form must be
// used:
//
//	{service: <name>, action: <lifecycle action>}  - act on a service
//	{service: <name>, bundle: <file>}              - merge key+chain, restart service
//	{copy: <dir>}                                  - copy artifacts, touch nothing
type JobEntry struct {
	Service string `yaml:"service,omitempty"`
	Action  string `yaml:"action,omitempty"`
	Bundle  string `yaml:"bundle,omitempty"`
	Copy    string `yaml:"copy,omitempty"`
}

// Config is the on-disk route file.
type Config struct {
	// ServiceManager selects how services are controlled, systemd (default)
	// or sysv.
	ServiceManager string `yaml:"svcmgr,omitempty"`

	// Timeout bounds each service control command.
	Timeout util.ParsableDuration `yaml:"timeout,omitempty"`

	// Routes maps a literal domain key to its ordered job definitions.
	Routes map[string][]JobEntry `yaml:"routes"`

	// Final is an optional job appended after all routed jobs, whether or
	// not any domain matched.
	Final *JobEntry `yaml:"final,omitempty"`
}

// Load reads and strictly parses the route file at path; unknown fields
// are rejected.
func Load(path string) (*Config, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, errors.WithMessage(err, "opening route config")
	}
	defer in.Close()

	decoder := yaml.NewDecoder(in)
	decoder.KnownFields(true)

	c := &Config{}
	if err := decoder.Decode(c); err != nil {
		return nil, errors.WithMessagef(err, "parsing route config %s", path)
	}
	if err := c.validate(); err != nil {
		return nil, errors.WithMessagef(err, "invalid route config %s", path)
	}
	return c, nil
}

func (e *JobEntry) validate(where string) error {
	switch {
	case e.Copy != "":
		if e.Service != "" || e.Action != "" || e.Bundle != "" {
			return fmt.Errorf("%s: 'copy' cannot be combined with service, action or bundle", where)
		}
	case e.Bundle != "":
		if e.Service == "" {
			return fmt.Errorf("%s: 'bundle' requires a service to restart", where)
		}
		if e.Action != "" {
			return fmt.Errorf("%s: 'bundle' implies a restart, drop the action field", where)
		}
	case e.Service != "":
		if e.Action == "" {
			return fmt.Errorf("%s: service '%s' needs an action", where, e.Service)
		}
		if _, err := svcmgr.ParseAction(e.Action); err != nil {
			return fmt.Errorf("%s: %s", where, err)
		}
	default:
		return fmt.Errorf("%s: entry defines neither service, bundle nor copy", where)
	}
	return nil
}

func (c *Config) validate() error {
	switch c.ServiceManager {
	case "", "systemd", "sysv":
	default:
		return fmt.Errorf("svcmgr '%s' isn't supported, must be systemd or sysv", c.ServiceManager)
	}
	if len(c.Routes) == 0 {
		return errors.New("no routes defined")
	}
	for domain, entries := range c.Routes {
		if len(entries) == 0 {
			return fmt.Errorf("route '%s' has no jobs", domain)
		}
		for idx := range entries {
			where := fmt.Sprintf("route '%s' entry %d", domain, idx+1)
			if err := entries[idx].validate(where); err != nil {
				return err
			}
		}
	}
	if c.Final != nil {
		if err := c.Final.validate("final job"); err != nil {
			return err
		}
	}
	return nil
}

// serviceRegistry hands out one Service per name, so routes sharing a
// service also share its run-scoped state and the idempotency guards hold
// across routes.
type serviceRegistry struct {
	manager  string
	runner   svcmgr.Runner
	timeout  util.ParsableDuration
	services map[string]*svcmgr.Service
}

func (r *serviceRegistry) get(name string) *svcmgr.Service {
	if svc, ok := r.services[name]; ok {
		return svc
	}
	var svc *svcmgr.Service
	if r.manager == "sysv" {
		svc = svcmgr.NewSysV(name, r.runner, r.timeout.Duration())
	} else {
		svc = svcmgr.NewSystemd(name, r.runner, r.timeout.Duration())
	}
	r.services[name] = svc
	return svc
}

func (r *serviceRegistry) job(entry *JobEntry, lineage string) deploy.Job {
	if entry.Copy != "" {
		return deploy.NewCopyArtifacts(lineage, entry.Copy)
	}
	if entry.Bundle != "" {
		return deploy.NewMergeBundle(lineage, entry.Bundle, r.get(entry.Service))
	}
	// validated earlier
	action, _ := svcmgr.ParseAction(entry.Action)
	return deploy.ServiceAction{Service: r.get(entry.Service), Action: action}
}

// Build turns the config into resolvable routes and an optional final job
// for the given renewal lineage.  All jobs share one runner and one
// service instance per name.
func (c *Config) Build(lineage string, runner svcmgr.Runner) (deploy.Routes, deploy.Job) {
	registry := &serviceRegistry{
		manager:  c.ServiceManager,
		runner:   runner,
		timeout:  c.Timeout,
		services: make(map[string]*svcmgr.Service),
	}

	routes := make(deploy.Routes, len(c.Routes))
	for domain, entries := range c.Routes {
		jobs := make([]deploy.Job, 0, len(entries))
		for idx := range entries {
			jobs = append(jobs, registry.job(&entries[idx], lineage))
		}
		routes[domain] = deploy.Many(jobs...)
	}

	var final deploy.Job
	if c.Final != nil {
		final = registry.job(c.Final, lineage)
	}
	return routes, final
}
