/*
Package config loads extsort settings.

	            +-------------+
	            |   Config    |
	            | (Settings)  |
	            +------+------+
	                   |
	      +-----------+-----------+-----------+
	      |           |           |           |
	+-----+----+ +----+----+ +----+----+ +----+----+
	|   YAML   | |  JSON   | |   HCL   | |   Env   |
	+----------+ +---------+ +---------+ +---------+

🎯 Purpose:
- Provides defaults (destination "dist", manifest on)
- Loads an optional config file, format picked by extension
- Applies EXTSORT_* environment overrides (a .env file is honoured)
- Validates ignore globs before any filesystem work starts

Precedence, lowest first: defaults, config file, environment, flags.

🔍 Example:

	cfg, err := config.LoadOptional(ctx, ".extsort.yaml")
	if err != nil {
		return err
	}
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return err
	}
*/
package config
