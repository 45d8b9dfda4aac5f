// Package config loads the description of a namespace: where it is
// published, which attributes it holds and how it is served. Files are YAML,
// or TOML when the name ends in .toml.
//
// A minimal file:
//
//	parent: /sys/module/simple_sysfs_mod
//	base_name: simple_sysfs
//	attributes:
//	  - name: simple_sysfs_data_1
//	    min: 0
//	    max: 1000
//	  - name: simple_sysfs_data_2
//	    min: 0
//	    max: 1000
//
// The same in TOML:
//
//	parent = "/sys/module/simple_sysfs_mod"
//	base_name = "simple_sysfs"
//
//	[[attributes]]
//	name = "simple_sysfs_data_1"
//	max = 1000
//
//	[[attributes]]
//	name = "simple_sysfs_data_2"
//	max = 1000
//
// Keys that are not set keep the values of Default. Unknown keys are an
// error.
package config
