package repository

// Repository groups the storage-backed collaborators. The preference store
// backend (memory, Postgres or Redis) is chosen at startup from config.
type Repository struct {
	Preference PreferenceRepository
}

func NewRepository(preference PreferenceRepository) *Repository {
	return &Repository{
		Preference: preference,
	}
}
