package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           traind API
// @version         1.0
// @description     HTTP API for monitoring a traind training session.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
