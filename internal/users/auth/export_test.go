// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package auth

// Exported for store tests.
var ScanUser = scanUser
