package repository

import "github.com/Freeeeeet/slotbook/internal/service"

var (
	_ service.WindowStore    = (*WindowRepository)(nil)
	_ service.BookingLedger  = (*BookingRepository)(nil)
	_ service.ServiceCatalog = (*ServiceRepository)(nil)
	_ service.UserStore      = (*UserRepository)(nil)
)
