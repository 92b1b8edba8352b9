package store

import "github.com/ValentinKolb/tKV/lib/codec"

// Config is the configuration a store is opened with
type Config struct {
	// Name is the database name, the first path segment of every store of the database
	Name string `json:"name" mapstructure:"name"`
	// StoreName selects a store inside the database. The default store lives directly in the database directory.
	StoreName string `json:"storeName" mapstructure:"storeName"`
	// EscapeKeys percent-escapes "%" and "/" in keys, so every key is exactly one leaf
	EscapeKeys bool `json:"escapeKeys" mapstructure:"escapeKeys"`
	// Extra holds unrecognized options, they are kept verbatim but have no effect
	Extra map[string]any `json:"extra,omitempty" mapstructure:",remain"`
}

// DefaultConfig returns the default configuration (database "localforage", store "keyvaluepairs")
func DefaultConfig() Config {
	return Config{
		Name:      "localforage",
		StoreName: "keyvaluepairs",
	}
}

// Merge returns a copy of c where empty fields are taken from defaults.
// EscapeKeys is kept if set on either side, Extra is kept verbatim (or taken from defaults if nil).
func (c Config) Merge(defaults Config) Config {
	if c.Name == "" {
		c.Name = defaults.Name
	}
	if c.StoreName == "" {
		c.StoreName = defaults.StoreName
	}
	c.EscapeKeys = c.EscapeKeys || defaults.EscapeKeys
	if c.Extra == nil && defaults.Extra != nil {
		c.Extra = make(map[string]any, len(defaults.Extra))
		for k, v := range defaults.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type options struct {
	codec    codec.ICodec
	defaults Config
}

func defaultOptions() options {
	return options{
		codec:    codec.NewRawCodec(),
		defaults: DefaultConfig(),
	}
}

// Option configures Open and NewDriver
type Option func(*options)

// WithCodec sets the value codec (default: codec.NewRawCodec())
func WithCodec(c codec.ICodec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithDefaults sets the default configuration used to fill empty fields and to detect the default store
func WithDefaults(defaults Config) Option {
	return func(o *options) {
		o.defaults = defaults
	}
}
