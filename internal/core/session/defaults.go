package session

import "github.com/neilberkman/qbench/internal/core/models"

const starterCstdio = `#include <cstdio>

int main() {
    puts("Hello World");
    return 0;
}
`

const starterIostream = `#include <iostream>

int main() {
    std::cout << "Hello World\n";
    return 0;
}
`

// DefaultMaxCodeSize is the largest tab the service accepts, in characters
const DefaultMaxCodeSize = 20000

// defaultTabs returns the two starter tabs of a fresh session
func defaultTabs(opts models.Options) []models.Tab {
	return []models.Tab{
		{Code: starterCstdio, Title: "cstdio", Options: opts},
		{Code: starterIostream, Title: "iostream", Options: opts},
	}
}
