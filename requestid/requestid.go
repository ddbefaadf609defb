// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package requestid propagates an externally supplied request id, such as
// the AWS request id of a Lambda invocation, into the native id of
// injected requests.
package requestid

import (
	"context"

	"github.com/z5labs/lambdawrap/inject"
)

// PluginName is the plugin data slot the propagated id is read from.
const PluginName = "lambdaRequestId"

// Data is stored in the [PluginName] slot of an injection.
type Data struct {
	RequestID string
}

// Tag marks id for propagation on the injection described by opts.
func Tag(opts *inject.Options, id string) {
	opts.SetPlugin(PluginName, Data{RequestID: id})
}

// Extension copies a tagged id into [inject.Request.ID]. Requests which were
// not tagged keep their native id.
func Extension(ctx context.Context, r *inject.Request) error {
	v, ok := r.Plugin(PluginName)
	if !ok {
		return nil
	}

	var id string
	switch d := v.(type) {
	case Data:
		id = d.RequestID
	case *Data:
		if d != nil {
			id = d.RequestID
		}
	}
	if id != "" {
		r.ID = id
	}
	return nil
}

// Extender is implemented by servers accepting pre-routing extensions.
type Extender interface {
	Ext(inject.Extension)
}

// Register installs [Extension] on e.
func Register(e Extender) {
	e.Ext(Extension)
}
