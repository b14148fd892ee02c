// Package factory instantiates pluggable modules, such as metrics sinks, from
// configuration entries of the form {type, conf}.
//
//	metrics:
//	  sinks:
//	    - type: textfile
//	      conf:
//	        path: /var/lib/node_exporter/simforecast.prom
//
// Each module package registers a Factory per type name at init time; the
// factory decodes its conf map with Decode and returns the implementation.
package factory
