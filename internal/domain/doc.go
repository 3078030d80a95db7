// Package domain defines the core business entities of the video
// analysis application: library videos and the analysis results produced
// for them. Entities validate themselves and carry no storage or
// transport concerns.
package domain
