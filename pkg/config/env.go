// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment tunable
const EnvPrefix = "BATPACK"

const (
	keyCompressLevel = "zip.compresslevel"
	keyIOBufSize     = "zip.io_bufsize"
	keyStoreBigMB    = "zip.store_big_files_mb"
	keyVerbose       = "zip.verbose"
	keyNoCompress    = "zip.no_compress"
	keyPrintInterval = "zip.print_interval"
)

// 🌍 NewEnv returns a viper instance bound to the BATPACK_ environment
func NewEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range []string{keyCompressLevel, keyIOBufSize, keyStoreBigMB, keyVerbose, keyNoCompress, keyPrintInterval} {
		_ = v.BindEnv(key)
	}
	return v
}

// 🌍 ApplyEnv overrides zip tunables from BATPACK_ZIP_* variables
func ApplyEnv(ctx context.Context, cfg *Config) {
	ApplyFrom(ctx, NewEnv(), cfg)
}

// 🌍 ApplyFrom overrides zip tunables from v. Values that do not parse leave
// the current value in place.
func ApplyFrom(ctx context.Context, v *viper.Viper, cfg *Config) {
	logger := zerolog.Ctx(ctx)

	applyInt := func(key string, dst *int) {
		raw := strings.TrimSpace(v.GetString(key))
		if raw == "" {
			return
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			logger.Warn().Str("key", key).Str("value", raw).Msg("ignoring unparseable tunable")
			return
		}
		*dst = n
	}

	applyFloat := func(key string, dst *float64) {
		raw := strings.TrimSpace(v.GetString(key))
		if raw == "" {
			return
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			logger.Warn().Str("key", key).Str("value", raw).Msg("ignoring unparseable tunable")
			return
		}
		*dst = f
	}

	applyBool := func(key string, dst *bool) {
		if !v.IsSet(key) {
			return
		}
		*dst = truthy(v.GetString(key))
	}

	applyInt(keyCompressLevel, &cfg.Zip.CompressLevel)
	applyInt(keyIOBufSize, &cfg.Zip.IOBufSize)
	applyInt(keyStoreBigMB, &cfg.Zip.StoreBigFilesMB)
	applyBool(keyVerbose, &cfg.Zip.Verbose)
	applyBool(keyNoCompress, &cfg.Zip.NoCompress)
	applyFloat(keyPrintInterval, &cfg.Zip.PrintInterval)

	cfg.Zip.clamp()
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
