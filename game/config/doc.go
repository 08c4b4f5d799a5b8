// Package config loads Spell Ground question sets from disk.
//
// The config package handles:
//   - Loading question sets from JSON or YAML files
//   - Validation through engine.ValidateQuestionSet
//   - Default set selection
//   - Reloading when files in the directory change
//
// File Format:
//
// A question set names itself, lists its questions and optionally picks a
// split mode ("char" or "word"), shuffling and a starting health:
//
//	name: Phrases
//	description: Short phrases
//	split: word
//	shuffle: true
//	max_health: 8
//	questions:
//	  - good morning
//	  - see you soon
//
// The same fields are accepted in JSON. A set is identified by its file name
// without the extension, so configs/animals.yaml is requested as "animals".
//
// Usage:
//
//	manager, err := config.NewManager("configs", config.WithLogger(logger))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	set, err := manager.LoadConfig("animals")
//
//	// Reload on edits until ctx is cancelled
//	go manager.Watch(ctx)
//
// The default set is default.json, default.yaml or default.yml when present,
// else the first loadable file, else engine.DefaultQuestionSet.
package config
