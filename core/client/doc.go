// Package client holds the plumbing shared by every model call: a lazily
// built, shared provider [Handle] and a [Chain] of stream middlewares
// (see the middleware subpackage) wrapped around the provider.
//
// A Handle builds its value at most once at a time; a failed build is not
// cached, so a configuration fixed at runtime (or a transient credential
// error) is picked up by the next call.
package client
