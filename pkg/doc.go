// Package pkg holds the libraries behind vtp, a post-processor that rewrites
// sliced G-code for variable-thickness printing.
//
// # Overview
//
// A project declares regions: solids in print space, each bound to a
// multiplier field and a geometry field. vtp splits every extruding move
// where it crosses a region boundary and at a fixed increment, then gives
// each piece the extrusion its region asks for. Everything outside every
// region keeps the slicer's extrusion.
//
// The packages build on each other bottom-up:
//
//  1. [geom], [errors] - points and coded errors
//  2. [field] - compiled scalar expressions of x, y and z
//  3. [solid] - primitive, CSG and mesh solids
//  4. [region] - regions, the region table and the classifier
//  5. [split] - cutting a segment at boundaries and increments
//  6. [extrusion] - thread area, extrusion rate and feed
//  7. [gcode] - the line codec
//  8. [engine] - the three-pass program transform
//  9. [config], [cache], [observability], [pipeline] - projects, caching,
//     metrics and the cached run wrapper used by the CLI and server
//
// # Data Flow
//
//	project file (TOML/YAML) + equations
//	         ↓
//	    [config] → [region.Table]
//	         ↓
//	G-code → [gcode] → [engine] (scan → plan → emit) → G-code
//	         ↑
//	    [split] + [extrusion]
//
// # Quick Start
//
//	cfg, _ := config.Load("vtp.toml")
//	table, _ := cfg.Table()
//	eng, _ := engine.New(cfg.EngineOptions(table))
//	res, _ := eng.Run(ctx, program)
//	os.Stdout.Write(res.Output)
//
// The [pipeline] package adds content-addressed caching, logging and metrics
// around the same call.
package pkg
