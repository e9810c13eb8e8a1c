package main

import (
	"github.com/spf13/pflag"

	"github.com/meigma/bfstool"
)

// Interface compliance.
var (
	_ pflag.Value = (*revisionFlag)(nil)
	_ pflag.Value = (*methodFlag)(nil)
)

// revisionFlag is a pflag.Value accepting any revision name or alias.
type revisionFlag struct {
	rev bfstool.Revision
	set bool
}

func (f *revisionFlag) String() string {
	if !f.set {
		return ""
	}
	return f.rev.String()
}

func (*revisionFlag) Type() string { return "format" }

func (f *revisionFlag) Set(val string) error {
	rev, err := bfstool.ParseRevision(val)
	if err != nil {
		return err
	}
	f.rev, f.set = rev, true
	return nil
}

// methodFlag is a pflag.Value for compression method names.
type methodFlag struct {
	method bfstool.Method
}

func (f *methodFlag) String() string { return f.method.String() }

func (*methodFlag) Type() string { return "method" }

func (f *methodFlag) Set(val string) error {
	m, err := bfstool.ParseMethod(val)
	if err != nil {
		return err
	}
	f.method = m
	return nil
}
