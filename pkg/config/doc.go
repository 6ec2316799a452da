/*
Package config loads pack job descriptions and archive tunables.

	            +-------------+
	            |   Config    |
	            | Pack + Zip  |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+  +----+----+  +----+----+
	|   YAML   |  |   HCL   |  |  JSON   |
	|  Parser  |  |  Parser |  |  Parser |
	+----------+  +---------+  +---------+
	                   |
	            +------+------+
	            |  BATPACK_*  |
	            |  env (viper)|
	            +-------------+

🎯 Purpose:
- Parses a config file, picked by extension through the parser registry
- Overlays BATPACK_ZIP_* environment tunables
- Clamps tunables into their valid ranges and fills defaults

🔄 Flow:
1. Defaults() seeds every value
2. Load() decodes a file over the defaults
3. ApplyEnv() overrides tunables from the environment
4. Validate() cleans paths and clamps values

Unparseable environment values never fail a pack: they leave the previous
value in place.

🔍 Example:

	cfg, err := config.Load(ctx, "pack.yaml")
	if err != nil {
		return err
	}
	config.ApplyEnv(ctx, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	opts := cfg.Zip.Options()
*/
package config
