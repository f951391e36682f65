// Package repository define el modelo de usuario persistido y los contratos
// del store de identidad.
//
// Las interfaces separan capacidades (CRUD básico, logins externos, email,
// claims, seguridad) para que un backend implemente sólo las que soporta.
//
// Las implementaciones concretas viven en internal/store/adapters/.
//
// Arquitectura:
//
//	┌─────────────────────────────────────────────────────┐
//	│        Framework de identidad (caller)              │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (modelo + interfaces)      │
//	│  UserStore, UserLoginStore, UserEmailStore, ...     │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│  adapters/mongo  ──►  store/docstore.Collection      │
//	│                       (mongo driver | memoria)      │
//	└─────────────────────────────────────────────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro
//   - Errores de dominio están en errors.go
package repository
