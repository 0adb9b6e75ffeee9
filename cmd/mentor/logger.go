// Copyright 2025 Mentor Authors
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

package main

import (
	"fmt"
	"os"

	"github.com/mentorvn/mentor/pkg/logger"
)

const (
	// LogLevelEnvVar overrides the default log level when the flag is
	// not given.
	LogLevelEnvVar = "MENTOR_LOG_LEVEL"
	// LogFileEnvVar overrides the default log destination (stderr).
	LogFileEnvVar = "MENTOR_LOG_FILE"
	// LogFormatEnvVar overrides the default log format.
	LogFormatEnvVar = "MENTOR_LOG_FORMAT"

	// DefaultLogLevel applies when neither flag nor env var is set.
	DefaultLogLevel = "info"
	// DefaultLogFormat applies when neither flag nor env var is set.
	DefaultLogFormat = "simple"
)

// initLoggerFromCLI initializes the logger with precedence
// flag > env var > default, and returns a cleanup function when a log
// file was opened.
func initLoggerFromCLI(cliLogLevel, cliLogFile, cliLogFormat string) (func(), error) {
	logLevel := cliLogLevel
	if logLevel == "" {
		logLevel = os.Getenv(LogLevelEnvVar)
	}
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	logFile := cliLogFile
	if logFile == "" {
		logFile = os.Getenv(LogFileEnvVar)
	}

	logFormat := cliLogFormat
	if logFormat == "" {
		logFormat = os.Getenv(LogFormatEnvVar)
	}
	if logFormat == "" {
		logFormat = DefaultLogFormat
	}

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	output := os.Stderr
	var cleanup func()
	if logFile != "" {
		file, cleanupFn, err := logger.OpenLogFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		output = file
		cleanup = cleanupFn
	}

	logger.Init(level, output, logFormat)
	return cleanup, nil
}
