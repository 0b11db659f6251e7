package memory

import "github.com/Freeeeeet/slotbook/internal/service"

var (
	_ service.WindowStore    = (*WindowStore)(nil)
	_ service.BookingLedger  = (*BookingLedger)(nil)
	_ service.ServiceCatalog = (*ServiceCatalog)(nil)
	_ service.UserStore      = (*UserStore)(nil)
)
