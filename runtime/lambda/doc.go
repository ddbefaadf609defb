// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package lambda runs API Gateway proxy handlers, either under the AWS Lambda
// runtime API or locally against events read from files.
package lambda
