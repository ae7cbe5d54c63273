package server

import (
	"errors"
	"fmt"
	"strings"
)

// Server identifies one deployment environment.
type Server int

// Known deployment environments.
const (
	Tranquility Server = iota
	Singularity
	Chaos
	Duality
	Thunderdome
)

// ErrUnknownServer is returned by Parse for names that match no environment.
var ErrUnknownServer = errors.New("unknown server")

type descriptor struct {
	name string
	code string
}

//nolint:gochecknoglobals // Closed table indexed by Server.
var descriptors = [...]descriptor{
	Tranquility: {name: "tranquility", code: "TQ"},
	Singularity: {name: "singularity", code: "SISI"},
	Chaos:       {name: "chaos", code: "CHAOS"},
	Duality:     {name: "duality", code: "DUALITY"},
	Thunderdome: {name: "thunderdome", code: "THUNDERDOME"},
}

// All returns every environment in declaration order.
func All() []Server {
	servers := make([]Server, len(descriptors))
	for i := range descriptors {
		servers[i] = Server(i)
	}

	return servers
}

// Names returns the lowercase names of every environment.
func Names() []string {
	names := make([]string, len(descriptors))
	for i, d := range descriptors {
		names[i] = d.name
	}

	return names
}

// Parse resolves a name ("singularity") or a code ("SISI"), ignoring case.
func Parse(s string) (Server, error) {
	s = strings.TrimSpace(s)

	for i, d := range descriptors {
		if strings.EqualFold(s, d.name) || strings.EqualFold(s, d.code) {
			return Server(i), nil
		}
	}

	return 0, fmt.Errorf("%q: %w", s, ErrUnknownServer)
}

// Valid reports whether s is one of the declared environments.
func (s Server) Valid() bool {
	return s >= 0 && int(s) < len(descriptors)
}

// Code returns the short code used in build-info URLs.
func (s Server) Code() string {
	if !s.Valid() {
		return ""
	}

	return descriptors[s].code
}

// String returns the lowercase environment name.
func (s Server) String() string {
	if !s.Valid() {
		return fmt.Sprintf("server(%d)", int(s))
	}

	return descriptors[s].name
}
