// Command forecastctl runs sales imports, exports and forecasts against the
// configured database without going through the HTTP API.
package main

func main() {
	Execute()
}
